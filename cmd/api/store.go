package main

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/vendora/internal/config"
	"github.com/georgemunganga/vendora/internal/database"
	"github.com/georgemunganga/vendora/internal/modules/vendor"
	"github.com/rs/zerolog"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type store struct {
	repo   vendor.Repository
	pinger pinger
	close  func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.App, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		conn := database.NewMongoConnector(cfg.MongoURI, cfg.MongoDatabase)
		// The connector dials on first use; a failure here is only reported.
		go func() {
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := conn.Ping(pctx); err != nil {
				logger.Warn().Err(err).Str("database", conn.Name()).Msg("mongodb not reachable yet")
				return
			}
			logger.Info().Str("database", conn.Name()).Msg("connected to mongodb")
		}()
		return &store{
			repo:   vendor.NewMongoRepository(conn),
			pinger: conn,
			close:  conn.Disconnect,
		}, nil

	case config.StorePostgres:
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := database.OpenPostgres(pctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := vendor.EnsureSchema(pctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info().Msg("connected to postgres")
		return &store{
			repo:   vendor.NewPostgresRepository(db),
			pinger: pingFunc(db.PingContext),
			close:  func(context.Context) error { return db.Close() },
		}, nil

	case config.StoreMemory:
		logger.Warn().Msg("using in-memory vendor store, data is lost on restart")
		return &store{
			repo:   vendor.NewMemoryRepository(),
			pinger: pingFunc(func(context.Context) error { return nil }),
			close:  func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
