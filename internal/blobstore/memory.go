package blobstore

import (
	"context"
	"sync"
)

// Memory es un Gateway en memoria para desarrollo y tests. Expone Drop para
// simular pérdida de datos en el store.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	sums  map[string]string
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte), sums: make(map[string]string)}
}

func (m *Memory) Store(ctx context.Context, versionID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[versionID]; ok {
		return ErrExists
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.blobs[versionID] = cp
	m.sums[versionID] = Digest(payload)
	return nil
}

func (m *Memory) Fetch(ctx context.Context, versionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.blobs[versionID]
	if !ok {
		return nil, ErrNotFound
	}
	if Digest(p) != m.sums[versionID] {
		return nil, ErrCorrupted
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	return cp, nil
}

// Drop elimina un blob, simulando data loss a nivel store.
func (m *Memory) Drop(versionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, versionID)
	delete(m.sums, versionID)
}

// Corrupt reemplaza el contenido sin actualizar el digest registrado.
func (m *Memory) Corrupt(versionID string, garbage []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[versionID]; ok {
		m.blobs[versionID] = garbage
	}
}

// Len retorna la cantidad de blobs almacenados.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
