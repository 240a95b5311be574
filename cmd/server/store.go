package main

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/videomeet-signaling/config"
	"github.com/cwrk-planet/videomeet-signaling/internal/memory"
	"github.com/cwrk-planet/videomeet-signaling/internal/mongostore"
	"github.com/cwrk-planet/videomeet-signaling/internal/pg"
	"github.com/cwrk-planet/videomeet-signaling/internal/postgres"
	"github.com/cwrk-planet/videomeet-signaling/internal/service"
)

func openStore(ctx context.Context, cfg *config.Config) (service.RoomStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := pg.NewPool(ctx, pg.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
			ApplicationName: cfg.Postgres.ApplicationName,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		repo := postgres.NewRoomRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return repo, nil

	case config.DriverMongo:
		st, err := mongostore.Connect(ctx, mongostore.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			OpTimeout:  cfg.Mongo.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return st, nil

	default:
		return memory.NewStore(), nil
	}
}
