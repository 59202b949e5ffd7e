// Package app wires the account store selected by configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nvrgate/internal/config"
	"nvrgate/internal/database"
	"nvrgate/internal/repository"
	"nvrgate/internal/service"
)

type Stores struct {
	Users    service.UserStore
	Sessions service.SessionStore
	Ping     func(ctx context.Context) error
	Close    func()
}

func OpenStores(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (Stores, error) {
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("using in-memory account store; accounts are lost on exit")
		mem := repository.NewMemoryStore()
		return Stores{
			Users:    mem,
			Sessions: mem,
			Ping:     func(context.Context) error { return nil },
			Close:    func() {},
		}, nil
	case "postgres":
		pool, err := database.Open(ctx, cfg.Postgres, log)
		if err != nil {
			return Stores{}, fmt.Errorf("open postgres: %w", err)
		}
		return Stores{
			Users:    repository.NewUserRepository(pool),
			Sessions: repository.NewSessionRepository(pool),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil
	default:
		return Stores{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
