package storage

import (
	"fmt"

	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/redis"
)

// Backends carries the already-connected clients a backend may need.
type Backends struct {
	Redis *redis.Client
	DB    *db.Client
}

// Open returns the Store selected by cfg.Store.Backend.
func Open(cfg *config.Config, backends Backends, logg *logger.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return NewMemory(cfg.Store.MaxBytes, logg), nil
	case config.StoreBackendRedis:
		if backends.Redis == nil {
			return nil, fmt.Errorf("redis backend selected without a redis client")
		}
		return NewRedis(backends.Redis, cfg.Redis.TTL, logg)
	case config.StoreBackendSQL:
		if backends.DB == nil {
			return nil, fmt.Errorf("sql backend selected without a db client")
		}
		return NewSQL(backends.DB, logg)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
