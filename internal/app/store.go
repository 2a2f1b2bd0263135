// Package app wires configuration into a ready functional id service.
package app

import (
	"context"
	"fmt"

	"funcid/internal/config"
	"funcid/internal/core/tx"
	"funcid/internal/domain/functionalid"
	"funcid/internal/infrastructure/storage/memory"
	"funcid/internal/infrastructure/storage/postgres"
	"funcid/internal/infrastructure/storage/postgres/generator_repo"
	"funcid/pkg/logger"
)

// Backend is an opened store with everything the service and health
// endpoints need from it.
type Backend struct {
	Name      string
	Repo      functionalid.Repository
	TxManager tx.Manager
	Stats     func() any
	Close     func()

	ping func(ctx context.Context) error
	pool *postgres.Pool
}

// Ping checks that the store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Service builds the functional id service on top of b.
func (b *Backend) Service() *functionalid.Service {
	return functionalid.NewService(b.Repo, b.TxManager)
}

// Migrate creates the schema. It is a no-op for the memory store.
func (b *Backend) Migrate(ctx context.Context) error {
	if b.pool == nil {
		return nil
	}
	return postgres.EnsureSchema(ctx, b.pool)
}

// OpenStore opens the backend selected by cfg.Store.
func OpenStore(ctx context.Context, cfg config.Config, log *logger.Logger) (*Backend, error) {
	log = log.WithComponent("store")
	switch cfg.Store {
	case config.StoreMemory:
		return openMemory(log), nil
	case config.StorePostgres:
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func openMemory(log *logger.Logger) *Backend {
	store := memory.New()
	log.Warn("using in-memory store, generators are lost on exit")
	return &Backend{
		Name:      config.StoreMemory,
		Repo:      store,
		TxManager: store,
		ping:      store.Ping,
		Stats:     func() any { return store.Stats() },
		Close:     func() {},
	}
}

func openPostgres(ctx context.Context, cfg config.Config, log *logger.Logger) (*Backend, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	log.Infow("database connection established",
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
	)

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.DBStatementTimeout
	txOpts.LockTimeout = cfg.DBLockTimeout
	txm := postgres.NewTxManager(pool, txOpts)

	b := &Backend{
		Name:      config.StorePostgres,
		Repo:      generator_repo.NewRepo(txm),
		TxManager: txm,
		ping:      pool.Ping,
		Stats:     func() any { return pool.Stats() },
		Close:     pool.Close,
		pool:      pool,
	}

	if cfg.AutoMigrate {
		if err := b.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("schema ensured")
	}
	return b, nil
}
