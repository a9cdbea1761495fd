package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache, con expiración y
// janitor de limpieza incluidos.
type memoryClient struct {
	c *gocache.Cache
}

// NewMemory crea un cache en memoria. defaultTTL 0 usa 5 minutos.
func NewMemory(defaultTTL time.Duration) *memoryClient {
	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}
	return &memoryClient{
		c: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

func (m *memoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *memoryClient) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *memoryClient) Ping(ctx context.Context) error { return nil }

func (m *memoryClient) Close() error { return nil }
