// Package cache provee el cache read-through de payloads con soporte
// multi-backend:
//
//   - Memory (in-process, para desarrollo/testing y single-instance)
//   - Redis (distribuido, para producción)
//
// El read path consulta stager → cache → store durable; los fetches
// exitosos del store pueblan el cache.
package cache

import (
	"context"
	"time"
)

// Client define las operaciones de cache sobre payloads.
type Client interface {
	// Get obtiene un payload. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un payload con TTL. Si ttl es 0 usa el default del backend.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configura el backend.
type Config struct {
	Driver     string // "memory" | "redis"
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// Errores de cache.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (e errNotFound) Error() string { return "cache: key not found" }

// New crea un cliente según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.DefaultTTL), nil
	}
}
