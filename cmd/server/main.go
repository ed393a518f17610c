package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"freight/internal/app"
	"freight/internal/config"
	"freight/internal/handler"
	internalRedis "freight/internal/redis"
	"freight/internal/repository/postgres"
	"freight/internal/service"
	"freight/internal/stream"
	"freight/pkg/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var publisher *stream.Publisher
	if cfg.Kafka.Enabled {
		publisher = stream.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		logger.Info("checkpoint firehose enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	server := wireServer(db, redisClient, nrApp, publisher, hub, logger, cfg)

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher *stream.Publisher,
	hub *ws.Hub,
	logger *zap.Logger,
	cfg *config.Config,
) *http.Server {
	// Initialize Redis stores.
	snapshotCache := internalRedis.NewSnapshotCache(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	positionStore := internalRedis.NewPositionStore(redisClient)

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	eventRepo := postgres.NewTripEventRepository(db)
	rateRepo := postgres.NewRateSettingRepository(db)
	templateRepo := postgres.NewRateTemplateRepository(db)

	// Initialize services.
	checkpointService := service.NewCheckpointService(db, tripRepo, eventRepo, snapshotCache, lockStore, positionStore, publisher, hub, logger)
	addOnService := service.NewAddOnService(tripRepo, eventRepo, rateRepo, snapshotCache, logger)
	totalsService := service.NewTotalsService(tripRepo, templateRepo, snapshotCache, logger)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(tripRepo, eventRepo, addOnService, totalsService, snapshotCache, positionStore, hub, logger)
	checkpointHandler := handler.NewCheckpointHandler(checkpointService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:       tripHandler,
		CheckpointHandler: checkpointHandler,
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
