// Package memory implementa el catálogo en memoria, para desarrollo y tests.
// Replica la semántica transaccional del backend Postgres: todas las
// operaciones corren bajo un mutex, así ActivateExclusive es atómico respecto
// de activaciones concurrentes sobre la misma logical key.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/datavault/internal/catalog/core"
)

type Store struct {
	mu       sync.Mutex
	versions map[string]*core.DatasetVersion
}

func New() *Store {
	return &Store{versions: make(map[string]*core.DatasetVersion)}
}

func (s *Store) Insert(ctx context.Context, v *core.DatasetVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[v.VersionID]; ok {
		return core.ErrKeyCollision
	}
	cp := *v
	s.versions[v.VersionID] = &cp
	return nil
}

func (s *Store) Transition(ctx context.Context, versionID string, from, to core.LifecycleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok {
		return core.ErrNotFound
	}
	if v.State != from {
		return core.ErrStaleTransition
	}
	v.State = to
	return nil
}

func (s *Store) ActivateExclusive(ctx context.Context, versionID string, key core.LogicalKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok {
		return core.ErrNotFound
	}
	if v.State == core.StateRejected {
		return core.ErrTerminalState
	}
	if v.Active {
		return nil
	}
	for _, other := range s.versions {
		if other.Key == key && other.Active && other.VersionID != versionID {
			other.Active = false
		}
	}
	v.State = core.StateAccepted
	v.Active = true
	v.QAPending = false
	return nil
}

func (s *Store) ClearQAPending(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok {
		return core.ErrNotFound
	}
	v.QAPending = false
	return nil
}

func (s *Store) GetByKey(ctx context.Context, key core.LogicalKey, activeOnly bool) ([]core.DatasetVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DatasetVersion
	for _, v := range s.versions {
		if v.Key != key {
			continue
		}
		if activeOnly && !v.Active {
			continue
		}
		out = append(out, *v)
	}
	sortByCreatedAtDesc(out)
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, versionID string) (*core.DatasetVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Store) DeleteStaged(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok || v.State != core.StateStaged {
		return core.ErrNotFound
	}
	delete(s.versions, versionID)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

func sortByCreatedAtDesc(vs []core.DatasetVersion) {
	sort.Slice(vs, func(i, j int) bool {
		return vs[i].CreatedAt.After(vs[j].CreatedAt)
	})
}
