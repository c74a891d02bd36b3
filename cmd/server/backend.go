package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/cache"
	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/handler"
	"github.com/sre-portfolio/notetrack/internal/repository"
	"github.com/sre-portfolio/notetrack/internal/repository/memory"
	"github.com/sre-portfolio/notetrack/internal/service"
)

// backend bundles the storage the services run on.
type backend struct {
	users   service.UserRepository
	tasks   service.TaskRepository
	entries service.TimeEntryRepository
	notes   service.NoteRepository
	tokens  service.TokenStore
	tx      service.Transactor

	deps    []handler.Dependency
	closers []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger, migrate bool) (*backend, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, data will not survive a restart")
		db := memory.NewDB()
		return &backend{
			users:   memory.NewUserRepository(db),
			tasks:   memory.NewTaskRepository(db),
			entries: memory.NewTimeEntryRepository(db),
			notes:   memory.NewNoteRepository(db),
			tokens:  memory.NewTokenStore(db),
			tx:      db,
			deps:    []handler.Dependency{{Name: "storage", Pinger: db}},
		}, nil
	}

	db, err := repository.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	b := &backend{closers: []func() error{db.Close}}

	if migrate {
		applied, err := repository.Migrate(ctx, db)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		for _, name := range applied {
			logger.Info().Str("migration", name).Msg("applied migration")
		}
	}

	redis, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, redis.Close)

	b.users = repository.NewUserRepository(db)
	b.tasks = repository.NewTaskRepository(db)
	b.entries = repository.NewTimeEntryRepository(db)
	b.notes = repository.NewNoteRepository(db)
	b.tokens = redis
	b.tx = repository.NewTransactor(db)
	b.deps = []handler.Dependency{
		{Name: "database", Pinger: handler.PingerFunc(db.PingContext)},
		{Name: "redis", Pinger: redis},
	}
	return b, nil
}
