package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cypherlabdev/odds-analytics-service/internal/blob"
	s3blob "github.com/cypherlabdev/odds-analytics-service/internal/blob/s3"
	"github.com/cypherlabdev/odds-analytics-service/internal/cache"
	"github.com/cypherlabdev/odds-analytics-service/internal/config"
	httpHandler "github.com/cypherlabdev/odds-analytics-service/internal/handler/http"
	"github.com/cypherlabdev/odds-analytics-service/internal/messaging"
	"github.com/cypherlabdev/odds-analytics-service/internal/movement"
	"github.com/cypherlabdev/odds-analytics-service/internal/pipeline"
	"github.com/cypherlabdev/odds-analytics-service/internal/provider"
	"github.com/cypherlabdev/odds-analytics-service/internal/service"
	"github.com/cypherlabdev/odds-analytics-service/internal/store"
	"github.com/cypherlabdev/odds-analytics-service/pkg/consensus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("ODDS_ANALYTICS_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("starting odds-analytics-service")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create Redis cache
	redisCache := cache.NewRedisCache(
		cache.RedisCacheConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		},
		logger,
	)
	defer redisCache.Close()

	// Test Redis connection
	if err := redisCache.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")

	checks := []httpHandler.ReadyCheck{{Name: "redis", Check: redisCache.Ping}}

	// Generation state: PostgreSQL when configured, memory otherwise
	var requests store.RequestStore
	var pg *store.PostgresStore
	memory := store.NewMemoryStore()
	if cfg.Postgres.DSN != "" {
		pg, err = store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		requests = pg
		checks = append(checks, httpHandler.ReadyCheck{Name: "postgres", Check: pg.Ping})
		logger.Info().Msg("generation state in PostgreSQL")
	} else {
		requests = memory
		logger.Warn().Msg("postgres.dsn not set, generation state is kept in memory")
	}

	var movements store.MovementStore
	switch cfg.Movements.Backend {
	case "postgres":
		movements = pg
	case "memory":
		movements = memory
	default:
		movements = store.NewRedisMovementStore(redisCache.Client(), cfg.Redis.KeyPrefix)
	}
	recorder := movement.NewRecorder(movements, cfg.Movements.Retention, logger)

	// Artifact files
	var blobs blob.Store
	switch cfg.Artifacts.Backend {
	case "s3":
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Artifacts.S3.Endpoint,
			Region:         cfg.Artifacts.S3.Region,
			Bucket:         cfg.Artifacts.S3.Bucket,
			Prefix:         cfg.Artifacts.S3.Prefix,
			AccessKey:      cfg.Artifacts.S3.AccessKey,
			SecretKey:      cfg.Artifacts.S3.SecretKey,
			UseSSL:         cfg.Artifacts.S3.UseSSL,
			ForcePathStyle: cfg.Artifacts.S3.ForcePathStyle,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create S3 client")
		}
		blobs = s3Client
		checks = append(checks, httpHandler.ReadyCheck{Name: "s3", Check: s3Client.Health})
	default:
		fileStore, err := blob.NewFileStore(cfg.Artifacts.Dir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open artifact directory")
		}
		blobs = fileStore
	}
	logger.Info().Str("backend", cfg.Artifacts.Backend).Msg("artifact storage initialized")

	// Create provider client and analytics service
	oddsClient := provider.NewClient(
		provider.Config{
			BaseURL:    cfg.Provider.BaseURL,
			APIKey:     cfg.Provider.APIKey,
			Timeout:    cfg.Provider.Timeout,
			EventsTTL:  cfg.Provider.EventsTTL,
			LiveTTL:    cfg.Provider.LiveTTL,
			LeaguesTTL: cfg.Provider.LeaguesTTL,
			OddsTTL:    cfg.Provider.OddsTTL,
		},
		redisCache,
		logger,
	)

	method, err := consensus.ParseMethod(cfg.Consensus.Method)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid consensus method")
	}
	analytics := service.NewAnalyticsService(oddsClient, consensus.NewEngine(method, logger), recorder, cfg.ToDefaults(), logger)
	logger.Info().Str("consensus", string(method)).Msg("analytics service initialized")

	// Kafka publisher is optional; a nil interface disables notifications
	var publisher pipeline.Publisher
	var kafkaPublisher *messaging.KafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = messaging.NewKafkaPublisher(
			messaging.KafkaPublisherConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.UpdateTopic,
			},
			logger,
		)
		publisher = kafkaPublisher
	}

	// Create generation pipeline
	generator := pipeline.New(requests, blobs, analytics, publisher, pipeline.Config{
		Workers:           cfg.Pipeline.Workers,
		QueueSize:         cfg.Pipeline.QueueSize,
		RunTimeout:        cfg.Pipeline.RunTimeout,
		DefaultBookmakers: cfg.Bookmakers.Default,
		Regions:           cfg.Regions(),
	}, logger)
	generator.Start()

	scheduler := pipeline.NewScheduler(generator, requests, cache.NewLocker(redisCache), recorder, pipeline.SchedulerConfig{
		RefreshInterval: cfg.Pipeline.RefreshInterval,
		ActiveWindow:    cfg.Pipeline.ActiveWindow,
		PruneAt:         cfg.Pipeline.PruneAt,
	}, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	// Create Kafka consumer
	var consumer *messaging.KafkaConsumer
	if cfg.Kafka.Enabled {
		consumer = messaging.NewKafkaConsumer(
			messaging.KafkaConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.TriggerTopic,
				GroupID: cfg.Kafka.GroupID,
			},
			generator,
			logger,
		)

		// Start Kafka consumer in goroutine
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Kafka consumer failed")
			}
		}()
	}

	// Setup HTTP server routes
	router := httpHandler.NewRouter(
		httpHandler.NewOddsHandler(analytics, logger),
		httpHandler.NewGenerationHandler(generator, logger),
		checks,
		httpHandler.RouterConfig{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
		logger,
	)
	logger.Info().Msg("API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")

	// Cancel context to stop consumer and scheduled jobs
	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Let queued generation runs finish
	if err := generator.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("generation pipeline shutdown failed")
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error().Err(err).Msg("Kafka consumer close failed")
		}
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error().Err(err).Msg("Kafka publisher close failed")
		}
	}

	logger.Info().Msg("shutdown complete")
}

// setupLogger configures the logger based on config
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set format
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return log.Logger.With().Str("service", "odds-analytics").Logger()
}
