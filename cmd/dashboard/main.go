package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"merch-inventory-dashboard/internal/cache"
	"merch-inventory-dashboard/internal/config"
	"merch-inventory-dashboard/internal/handler"
	"merch-inventory-dashboard/internal/metrics"
	"merch-inventory-dashboard/internal/repository"
	"merch-inventory-dashboard/internal/router"
	"merch-inventory-dashboard/internal/service"
	"merch-inventory-dashboard/internal/web"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	setupLogging(logrus.StandardLogger(), cfg.App)

	log := logrus.WithField("component", "main")
	log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	}).Info("starting inventory dashboard")

	// Initialize store and schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		cancel()
		log.WithError(err).Fatal("failed to open database")
	}
	if err := store.EnsureSchema(ctx); err != nil {
		cancel()
		store.Close()
		log.WithError(err).Fatal("failed to create schema")
	}
	cancel()
	defer store.Close()

	// Idempotency cache
	idempotency, cacheType := openCache(cfg.Cache)
	defer idempotency.Close()

	m := metrics.New()

	// Initialize services
	inventoryService := service.NewInventoryService(store.Inventory(), store.SalesLog(), service.Options{
		Cache:          idempotency,
		IdempotencyTTL: cfg.Cache.IdempotencyTTL,
		Metrics:        m,
	})

	renderer, err := web.NewRenderer(cfg.App.Title)
	if err != nil {
		log.WithError(err).Fatal("failed to parse templates")
	}

	// Create router
	r := router.New(router.Config{
		Handler:          handler.New(cfg.App.Name, cfg.App.Version, store, idempotency),
		PageHandler:      handler.NewPageHandler(inventoryService, renderer),
		InventoryHandler: handler.NewInventoryHandler(inventoryService),
		AdminHandler:     handler.NewAdminHandler(store, idempotency, cacheType),
		Metrics:          m,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", cfg.Server.Address()).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	log.Info("server stopped")
}

// setupLogging configures logger from the app settings. Development
// builds also log the calling function.
func setupLogging(logger *logrus.Logger, app config.AppConfig) {
	if app.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetReportCaller(app.IsDevelopment())

	level, err := logrus.ParseLevel(app.LogLevel)
	if err != nil {
		logger.WithField("level", app.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// openCache connects to Redis when configured and falls back to the
// in-memory cache otherwise.
func openCache(cfg config.CacheConfig) (cache.Cache, string) {
	if cfg.Type != "redis" {
		return cache.NewMemoryCache(), "memory"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:      cfg.RedisAddress(),
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		KeyPrefix: cfg.KeyPrefix,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "main",
			"error":     err,
		}).Warn("redis unavailable, using in-memory idempotency cache")
		return cache.NewMemoryCache(), "memory"
	}
	return redisCache, "redis"
}
