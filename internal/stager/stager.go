// Package stager implementa el área de staging de ingesta: retiene el payload
// en memoria desde que el caller lo entrega hasta que el store durable
// confirma la escritura. Es volátil y process-local a propósito — el puente
// entre "aceptado" y "confirmado durable" no necesita sobrevivir un restart
// porque la ingesta entera se considera no comprometida hasta la confirmación.
package stager

import (
	"errors"
	"sync"
)

var (
	// ErrDuplicateVersion : el versionID ya está en staging. La ingesta
	// siempre acuña IDs únicos, así que esto es un bug de integridad.
	ErrDuplicateVersion = errors.New("stager: duplicate version id")

	// ErrNotFound : el payload ya fue retirado o nunca estuvo. Con entrega
	// at-least-once de la confirmación esto es benigno.
	ErrNotFound = errors.New("stager: version not found")
)

// Stager es seguro para uso concurrente desde Put/Take/Size.
type Stager struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func New() *Stager {
	return &Stager{entries: make(map[string][]byte)}
}

// Put inserta el payload bajo una key nueva.
func (s *Stager) Put(versionID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[versionID]; ok {
		return ErrDuplicateVersion
	}
	s.entries[versionID] = payload
	return nil
}

// Take remueve y retorna el payload atómicamente, de forma que el envío al
// store durable no pueda correr contra una remoción concurrente disparada
// por una confirmación duplicada.
func (s *Stager) Take(versionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[versionID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, versionID)
	return p, nil
}

// Peek retorna el payload sin removerlo. Usado por el read path mientras la
// versión sigue en staging.
func (s *Stager) Peek(versionID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[versionID]
	return p, ok
}

// Remove descarta la entrada si existe. Usado por el rollback de Ingest.
func (s *Stager) Remove(versionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, versionID)
}

// Size es sólo un hook de observabilidad, sin contrato de consistencia.
func (s *Stager) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
