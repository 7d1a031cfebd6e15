package session

import (
	"context"
	"fmt"
	"log/slog"

	"taskctl/internal/config"
)

// Open builds the store selected by cfg.Store.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Store, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, log), nil
}

func openBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Store {
	case config.StoreFile, "":
		return NewFileBackend(cfg.SessionDir()), nil
	case config.StoreSQLite:
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config dir: %w", err)
		}
		return NewSQLiteBackend(cfg.SessionDBPath())
	case config.StoreRedis:
		client, err := DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return NewRedisBackend(client, cfg.Dir), nil
	case config.StoreMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
