// Package cache provee un cache de lecturas con backends intercambiables.
//
// Soporta:
//   - memory (in-process, desarrollo y testing)
//   - redis (compartido, producción)
//
// Se usa para cachear resoluciones de tenant; nunca para estado
// autoritativo.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. El segundo retorno indica presencia.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set guarda un valor con TTL. ttl 0 usa el default del backend.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete elimina una key. Eliminar una key ausente no es error.
	Delete(ctx context.Context, key string)

	// Close libera la conexión del backend.
	Close() error
}

// Config selecciona y parametriza el backend.
type Config struct {
	Driver     string // "memory" | "redis"
	DefaultTTL time.Duration

	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
}

// New crea un cliente según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return newRedis(cfg), nil
	case "memory", "":
		return NewMemory(cfg.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
