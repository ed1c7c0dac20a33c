package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/streamta/internal/api"
	"github.com/mohamedkhairy/streamta/internal/config"
	"github.com/mohamedkhairy/streamta/internal/indicator"
	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/pubsub"
	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/mohamedkhairy/streamta/internal/wsgateway"
	"github.com/mohamedkhairy/streamta/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", logger.ErrorField(err))
	}

	logger.Info("Starting indicator engine service",
		logger.Int("port", cfg.Indicator.Port),
		logger.Int("health_port", cfg.Indicator.HealthCheckPort),
		logger.Int("ws_max_connections", cfg.WSGateway.MaxConnections),
		logger.Stream(cfg.Indicator.StreamName),
		logger.String("consumer_group", cfg.Indicator.ConsumerGroup),
		logger.String("snapshot_store", cfg.Indicator.SnapshotStore),
	)

	// Initialize Redis client
	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client",
			logger.ErrorField(err),
		)
	}
	defer redisClient.Close()

	// Initialize indicator registry
	indicatorRegistry := indicator.NewIndicatorRegistry()
	if err := indicator.RegisterAllIndicators(indicatorRegistry); err != nil {
		logger.Fatal("Failed to register indicators",
			logger.ErrorField(err),
		)
	}

	// Initialize indicator engine
	engine, err := indicator.NewEngine(indicator.EngineConfig{
		MaxSymbols: cfg.Indicator.MaxSymbols,
		Indicators: cfg.Indicator.Indicators,
	}, indicatorRegistry)
	if err != nil {
		logger.Fatal("Failed to create indicator engine",
			logger.ErrorField(err),
		)
	}

	logger.Info("Registered indicators",
		logger.Int("available", len(indicatorRegistry.ListAvailable())),
		logger.Int("computed", len(engine.Indicators())),
	)

	// Restore state before consuming so redelivered bars are recognized as stale
	snapshotStore, err := openSnapshotStore(cfg, redisClient)
	if err != nil {
		logger.Fatal("Failed to open snapshot store",
			logger.ErrorField(err),
		)
	}
	if snapshotStore != nil {
		defer snapshotStore.Close()
	}

	// Initialize bar consumer
	consumerConfig := indicator.DefaultConsumerConfig(
		cfg.Indicator.StreamName,
		cfg.Indicator.ConsumerGroup,
		cfg.Indicator.ConsumerName,
	)
	consumerConfig.BatchSize = cfg.Indicator.BatchSize
	consumerConfig.AckTimeout = cfg.Indicator.AckTimeout

	barConsumer := indicator.NewBarConsumer(redisClient, consumerConfig)
	barConsumer.SetProcessor(engine)

	var checkpointer *indicator.Checkpointer
	if snapshotStore != nil {
		checkpointer = indicator.NewCheckpointer(engine, snapshotStore, cfg.Indicator.SnapshotKey,
			cfg.Indicator.CheckpointInterval, barConsumer.LastAckedID)

		restoreCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		restored, err := checkpointer.Restore(restoreCtx)
		cancel()
		if err != nil {
			// A broken snapshot must not keep the service down
			logger.Error("Failed to restore snapshot, starting cold",
				logger.ErrorField(err),
			)
		} else if restored {
			logger.Info("Engine state restored",
				logger.Int("symbols", engine.GetSymbolCount()),
			)
		}
	}

	// Initialize indicator publisher
	publisherConfig := indicator.DefaultPublisherConfig()
	publisherConfig.IndicatorKeyPrefix = cfg.Indicator.KeyPrefix
	publisherConfig.IndicatorTTL = cfg.Indicator.ResultTTL
	publisherConfig.UpdateChannel = cfg.Indicator.UpdateChannel
	publisherConfig.PublishTimeout = cfg.Indicator.ProcessTimeout
	publisher := indicator.NewPublisher(redisClient, publisherConfig)

	if err := publisher.Start(); err != nil {
		logger.Fatal("Failed to start indicator publisher",
			logger.ErrorField(err),
		)
	}

	// Live feed for WebSocket clients
	hub := wsgateway.NewHub(cfg.WSGateway, engine)
	if err := hub.Start(); err != nil {
		logger.Fatal("Failed to start WebSocket hub",
			logger.ErrorField(err),
		)
	}

	// Set up engine to publish indicators after processing bars
	engine.SetOnIndicatorsUpdated(func(update models.IndicatorUpdate) {
		publisher.QueueUpdate(update)
		hub.Publish(update)
	})

	// Start bar consumer
	if err := barConsumer.Start(); err != nil {
		logger.Fatal("Failed to start bar consumer",
			logger.ErrorField(err),
		)
	}

	if checkpointer != nil {
		if err := checkpointer.Start(); err != nil {
			logger.Fatal("Failed to start checkpointer",
				logger.ErrorField(err),
			)
		}
	}

	logger.Info("Indicator engine service started",
		logger.Stream(cfg.Indicator.StreamName),
		logger.String("consumer", cfg.Indicator.ConsumerName),
	)

	// Setup API server
	var wg sync.WaitGroup
	apiRouter := mux.NewRouter()
	apiRouter.Use(mux.MiddlewareFunc(api.MetricsMiddleware()))
	api.NewIndicatorHandler(engine, indicatorRegistry).RegisterRoutes(apiRouter)
	apiRouter.HandleFunc("/ws", hub.ServeWS).Methods("GET")
	apiServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Indicator.Port),
		Handler: api.ChainMiddleware(
			api.ErrorHandlingMiddleware(),
			api.TracingMiddleware(),
			api.LoggingMiddleware(),
			api.CORSMiddleware(),
		)(apiRouter),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup health and metrics server
	healthRouter := setupHealthAndMetricsServer(engine, barConsumer, publisher, checkpointer, hub, redisClient)
	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Indicator.HealthCheckPort),
		Handler:      healthRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	for name, server := range map[string]*http.Server{"api": apiServer, "health": healthServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting HTTP server",
				logger.String("server", name),
				logger.String("addr", server.Addr),
			)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed",
					logger.String("server", name),
					logger.ErrorField(err),
				)
			}
		}()
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down indicator engine service")

	// Stop intake first, then flush queued updates, then write the final snapshot
	barConsumer.Stop()
	publisher.Stop()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if checkpointer != nil {
		if err := checkpointer.Stop(shutdownCtx); err != nil {
			logger.Error("Final checkpoint failed", logger.ErrorField(err))
		}
	}

	for name, server := range map[string]*http.Server{"api": apiServer, "health": healthServer} {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed",
				logger.String("server", name),
				logger.ErrorField(err),
			)
		}
	}

	// Wait for all goroutines to finish
	wg.Wait()

	logger.Info("Indicator engine service stopped")
}

// openSnapshotStore returns the configured snapshot store, or nil when
// checkpointing is disabled
func openSnapshotStore(cfg *config.Config, redisClient storage.RedisClient) (storage.SnapshotStore, error) {
	switch cfg.Indicator.SnapshotStore {
	case config.SnapshotStoreRedis:
		return pubsub.NewRedisSnapshotStore(redisClient, "snapshot:"), nil
	case config.SnapshotStorePostgres:
		store, err := storage.NewPostgresSnapshotStore(cfg.Database)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SnapshotStoreNone:
		logger.Warn("Checkpointing disabled, state is rebuilt from the stream on restart")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown snapshot store %q", cfg.Indicator.SnapshotStore)
	}
}

// setupHealthAndMetricsServer sets up HTTP endpoints for health checks and metrics
func setupHealthAndMetricsServer(
	engine *indicator.Engine,
	consumer *indicator.BarConsumer,
	publisher *indicator.Publisher,
	checkpointer *indicator.Checkpointer,
	hub *wsgateway.Hub,
	redisClient storage.RedisClient,
) *mux.Router {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := map[string]interface{}{
			"consumer": map[string]interface{}{
				"status":  "ok",
				"running": consumer.IsRunning(),
				"stats":   consumer.GetStats(),
			},
			"engine": map[string]interface{}{
				"status":       "ok",
				"symbol_count": engine.GetSymbolCount(),
			},
			"publisher": map[string]interface{}{
				"status":  "ok",
				"running": publisher.IsRunning(),
				"dropped": publisher.Dropped(),
			},
			"websocket": map[string]interface{}{
				"status":  "ok",
				"running": hub.IsRunning(),
				"stats":   hub.GetStats(),
			},
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		redisCheck := map[string]interface{}{"status": "ok"}
		if err := redisClient.Ping(ctx); err != nil {
			redisCheck["status"] = "error"
			redisCheck["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		checks["redis"] = redisCheck

		if checkpointer != nil {
			lastAt, lastErr := checkpointer.Status()
			check := map[string]interface{}{"status": "ok", "last_checkpoint": lastAt}
			if lastErr != nil {
				check["status"] = "degraded"
				check["error"] = lastErr.Error()
			}
			checks["checkpoint"] = check
		}

		// Check if any component is not running
		if !consumer.IsRunning() || !publisher.IsRunning() {
			status = http.StatusServiceUnavailable
		}

		healthStatus := map[string]interface{}{
			"status":    "UP",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}
		if status != http.StatusOK {
			healthStatus["status"] = "DOWN"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(healthStatus)
	}).Methods("GET")

	// Readiness probe
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if consumer.IsRunning() && publisher.IsRunning() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("READY"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
		}
	}).Methods("GET")

	// Liveness probe
	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("LIVE"))
	}).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return router
}
