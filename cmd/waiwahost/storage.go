package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/config"
	mongostore "github.com/andresg0412/waiwahost-plataforma/internal/infra/db/mongo"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/db/postgres"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/inbox"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/obs"
	infraoutbox "github.com/andresg0412/waiwahost-plataforma/internal/infra/outbox"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/storage/memory"
)

// storage bundles everything one STORAGE_DRIVER provides.
type storage struct {
	factory     uow.UoWFactory
	outbox      infraoutbox.Store
	idempotency middleware.IdempotencyStore
	inbox       func(consumer string) inbox.Store
	checks      map[string]obs.Check
	prune       func(ctx context.Context) (int64, error)
	close       func(ctx context.Context)
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return openMemory(cfg, logger), nil
	}
}

func openMemory(cfg config.Config, logger *slog.Logger) storage {
	idem := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	logger.Info("storage in memory")
	return storage{
		factory:     memory.Factory{Store: memory.NewStore()},
		outbox:      memory.NewOutboxStore(),
		idempotency: idem,
		inbox:       func(string) inbox.Store { return inbox.NewMemory() },
		checks:      map[string]obs.Check{},
		prune: func(context.Context) (int64, error) {
			return int64(idem.Prune()), nil
		},
		close: func(context.Context) {},
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return storage{}, fmt.Errorf("mongo ping: %w", err)
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo indexes not ensured", "error", err)
	}
	replays := mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
	if err := replays.EnsureIndexes(ctx); err != nil {
		logger.Warn("idempotency expiry index not ensured", "error", err)
	}
	logger.Info("storage in mongo", "database", cfg.MongoDB)
	return storage{
		factory:     mongostore.Factory{DB: client.DB},
		outbox:      infraoutbox.NewMongoStore(client.DB),
		idempotency: replays,
		inbox:       func(consumer string) inbox.Store { return inbox.NewMongoStore(client.DB, consumer) },
		checks:      map[string]obs.Check{"mongo": client.Ping},
		close: func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("mongo disconnect failed", "error", err)
			}
		},
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return storage{}, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return storage{}, err
	}
	idem := postgres.IdempotencyStore{DB: db, TTL: cfg.IdempotencyTTL}
	logger.Info("storage in postgres")
	return storage{
		factory:     postgres.Factory{DB: db},
		outbox:      postgres.OutboxStore{DB: db},
		idempotency: idem,
		inbox:       func(consumer string) inbox.Store { return postgres.InboxStore{DB: db, Consumer: consumer} },
		checks:      map[string]obs.Check{"postgres": db.PingContext},
		prune:       idem.Prune,
		close: func(context.Context) {
			if err := db.Close(); err != nil {
				logger.Warn("postgres close failed", "error", err)
			}
		},
	}, nil
}
