package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	availabilityapp "github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/broker/kafka"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/cache"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/config"
	ginserver "github.com/andresg0412/waiwahost-plataforma/internal/infra/http/gin"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/inbox"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/obs"
	infraoutbox "github.com/andresg0412/waiwahost-plataforma/internal/infra/outbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		store.close(closeCtx)
	}()

	queryCache, cacheCheck, shared, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	checks := store.checks
	if cacheCheck != nil {
		checks["redis"] = cacheCheck
	}

	if cfg.LoadFixtures {
		if err := loadFixtures(ctx, store.factory, cfg.FixturesPath, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	app := buildApplication(store, queryCache, logger)
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks}, app)

	producer, consumer := startBroker(ctx, cfg, store, queryCache, shared, logger)
	if producer != nil {
		defer producer.Close()
	}
	if consumer != nil {
		defer consumer.Close()
	}
	go pruneIdempotency(ctx, store, cfg.IdempotencyTTL, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildApplication(store storage, queryCache middleware.QueryCache, logger *slog.Logger) ginserver.Handlers {
	clock := domainavailability.SystemClock{}
	eng := engine.New(clock)
	deps := availabilityapp.WriteDeps{
		UoWFactory: store.factory,
		Engine:     eng,
		Outbox:     store.outbox,
		Clock:      clock,
		Logger:     logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[availabilityapp.CreateIntervalCommand, *dto.IntervalResult](commandBus,
		availabilityapp.CreateIntervalCommand{}.Key(), &availabilityapp.CreateIntervalHandler{WriteDeps: deps})
	commands.RegisterHandler[availabilityapp.EditIntervalCommand, *dto.IntervalResult](commandBus,
		availabilityapp.EditIntervalCommand{}.Key(), &availabilityapp.EditIntervalHandler{WriteDeps: deps})
	commands.RegisterHandler[availabilityapp.DeleteIntervalCommand, *dto.DeleteResult](commandBus,
		availabilityapp.DeleteIntervalCommand{}.Key(), &availabilityapp.DeleteIntervalHandler{WriteDeps: deps})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.GetAvailabilityQuery, dto.Availability](queryBus,
		availabilityapp.GetAvailabilityQuery{}.Key(), &availabilityapp.GetAvailabilityHandler{UoWFactory: store.factory, Logger: logger})
	queries.RegisterHandler[availabilityapp.GetGridQuery, dto.Grid](queryBus,
		availabilityapp.GetGridQuery{}.Key(), &availabilityapp.GetGridHandler{UoWFactory: store.factory, Engine: eng, Logger: logger})
	queries.RegisterHandler[availabilityapp.CheckIntervalQuery, dto.CheckResult](queryBus,
		availabilityapp.CheckIntervalQuery{}.Key(), &availabilityapp.CheckIntervalHandler{UoWFactory: store.factory, Engine: eng})

	// Commit happens innermost so cache invalidation and the outbox flush
	// only see committed writes.
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.CommandLogging(logger),
		middleware.Validation(),
		middleware.Idempotency(store.idempotency, nil, nil, logger),
		middleware.CacheInvalidation(queryCache, logger),
		middleware.OutboxFlush(store.outbox, logger),
		middleware.RetryingTransaction(store.factory, nil, 3),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(),
		middleware.QueryCaching(queryCache, logger),
	)

	return ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
	}
}

// openCache prefers Redis, shared by every instance, and falls back to a
// per-process cache.
func openCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (middleware.QueryCache, obs.Check, bool, error) {
	if cfg.RedisAddr == "" {
		logger.Info("query cache in memory", "ttl", cfg.CacheTTL)
		return cache.NewMemory(cfg.CacheTTL), nil, false, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, false, err
	}
	r := cache.NewRedis(client, cfg.CacheTTL, "")
	logger.Info("query cache in redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return r, r.Ping, true, nil
}

// startBroker relays the outbox to Kafka and listens for interval events to
// drop cached reads. Both are skipped when no brokers are configured.
func startBroker(ctx context.Context, cfg config.Config, store storage, queryCache middleware.QueryCache, sharedCache bool, logger *slog.Logger) (*kafka.Producer, *kafka.Consumer) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka disabled, outbox records stay pending")
		return nil, nil
	}
	instance := uuid.NewString()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("waiwahost-outbox"))
	if err != nil {
		logger.Error("kafka producer unavailable", "error", err)
	} else {
		worker := &infraoutbox.Worker{
			Store:       store.outbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			ID:          instance,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	// A shared cache needs one invalidation per event; per-process caches
	// need every instance to see every event.
	groupID := cfg.KafkaGroupID
	if !sharedCache {
		groupID += "-" + instance
	}
	handler := inbox.CacheInvalidator{Inbox: store.inbox(groupID), Cache: queryCache, Logger: logger}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, groupID, kafka.NewConfig("waiwahost-cache"), handler, logger)
	if err != nil {
		logger.Error("kafka consumer unavailable", "error", err)
		return producer, nil
	}
	topic := infraoutbox.Topic(cfg.KafkaTopicPrefix, "interval.created")
	go func() {
		if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("cache invalidation consumer stopped", "error", err)
		}
	}()
	logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers, "topic", topic, "group", groupID)
	return producer, consumer
}

func pruneIdempotency(ctx context.Context, store storage, ttl time.Duration, logger *slog.Logger) {
	if store.prune == nil || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.prune(ctx)
			if err != nil {
				logger.Warn("idempotency prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("idempotency records pruned", "count", n)
			}
		}
	}
}
