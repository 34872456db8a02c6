package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/rocketsafe/rocketsafe/config"
	"github.com/rocketsafe/rocketsafe/internal/api"
	"github.com/rocketsafe/rocketsafe/internal/database"
	"github.com/rocketsafe/rocketsafe/internal/feed"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/metrics"
	middlewares "github.com/rocketsafe/rocketsafe/internal/middleware"
	"github.com/rocketsafe/rocketsafe/internal/pipeline"
	"github.com/rocketsafe/rocketsafe/internal/ratelimit"
	"github.com/rocketsafe/rocketsafe/internal/registry"
	"github.com/rocketsafe/rocketsafe/internal/snapshot"
	"github.com/rocketsafe/rocketsafe/internal/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting RocketSafe application",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load static registries; the service cannot classify anything without them
	locations, polygons, err := registry.Load(cfg.Registry)
	if err != nil {
		logger.Fatal("Failed to load registries", "error", err)
	}

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()

	// Initialize event store
	eventStore := store.New(db)
	if pg, ok := eventStore.(*store.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure database schema", "error", err)
		}
	}

	clock := clockwork.NewRealClock()

	// Optional Redis cache for the upstream feed
	var feedCache *redis.Client
	if cfg.Redis.Addr != "" {
		feedCache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer feedCache.Close()
		logger.Info("Feed cache enabled", "addr", cfg.Redis.Addr)
	}

	feedClient := feed.New(cfg.Feed, feedCache, clock)
	snapshots := snapshot.NewHolder()

	// Start the snapshot refresh pipeline in background
	snapshotPipeline := pipeline.New(feedClient, snapshots, locations, polygons, clock, cfg.Feed)
	go func() {
		if err := snapshotPipeline.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Pipeline error", "error", err)
		}
	}()

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.CORS.AllowedOrigins))

	// Initialize API handlers
	writeLimiter := ratelimit.NewLimiter(feedCache, cfg.RateLimit.WriteRPM, clock)
	apiHandler := api.NewHandler(snapshots, eventStore, clock, cfg.Feed, Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r, writeLimiter.Middleware(func(req *http.Request) string {
		return req.RemoteAddr
	}))

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
