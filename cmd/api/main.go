package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloomcart/internal/cart"
	"bloomcart/internal/catalog"
	"bloomcart/internal/checkout"
	"bloomcart/internal/config"
	"bloomcart/internal/database"
	"bloomcart/internal/events"
	"bloomcart/internal/handler"
	"bloomcart/internal/pricing"
	"bloomcart/internal/rates"
	"bloomcart/internal/repository"
	"bloomcart/internal/router"
	"bloomcart/internal/service"
	"bloomcart/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting bloomcart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool and apply migrations
	if err := database.Migrate(cfg.Database, cfg.Database.MigrationsDir, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize the durable session store
	var sessions session.Store
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		redisStore, err := session.NewRedisStore(ctx, client, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis session store: %w", err)
		}
		sessions = redisStore
	} else {
		sessions = session.NewMemoryStore()
		logger.Info().Msg("using in-memory session store (redis disabled)")
	}

	// Load the shipping rate schedule: S3, local file, or built-in default
	schedule := loadSchedule(ctx, cfg.Rates, logger)

	// Initialize the catalog client
	var catalogSvc catalog.Service
	if cfg.Catalog.BaseURL != "" {
		catalogSvc = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, logger)
	} else {
		catalogSvc = catalog.NewStaticCatalog(nil)
		logger.Warn().Msg("no catalog base URL configured, using empty static catalog")
	}

	// Initialize repositories and services
	orderRepo := repository.NewOrderRepository(pool, logger)
	orderService := service.NewOrderService(orderRepo, schedule, logger)

	// Initialize the per-session cart and checkout machinery
	carts := cart.NewManager(sessions, schedule, logger)
	registry := checkout.NewRegistry(carts, orderService, logger)

	// Start the confirmation event consumer when the broker is enabled
	if cfg.Broker.Enabled {
		consumer, err := events.NewConsumer(cfg.Broker.URL, cfg.Broker.Exchange, cfg.Broker.Queue, orderService, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event consumer: %w", err)
		}
		defer consumer.Close()

		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start event consumer: %w", err)
		}
	}

	// Initialize HTTP handlers
	cartHandler := handler.NewCartHandler(carts, catalogSvc, logger)
	checkoutHandler := handler.NewCheckoutHandler(registry, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	sessionHandler := handler.NewSessionHandler(carts, registry, sessions, logger)

	// Initialize router
	mux := router.New(cartHandler, checkoutHandler, orderHandler, sessionHandler, cfg.Auth.WebhookAPIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadSchedule resolves the shipping rate schedule. A failed S3 or file load
// falls back to the built-in default rather than refusing to start.
func loadSchedule(ctx context.Context, cfg config.RatesConfig, logger zerolog.Logger) pricing.Schedule {
	if cfg.S3Enabled {
		loader, err := rates.NewS3Loader(ctx, cfg.S3Bucket, cfg.S3Region, logger)
		if err == nil {
			schedule, loadErr := loader.Load(ctx, cfg.S3Key)
			if loadErr == nil {
				return schedule
			}
			err = loadErr
		}
		logger.Warn().Err(err).Msg("failed to load rate schedule from S3, trying local sources")
	}

	if cfg.FilePath != "" {
		schedule, err := rates.NewFileLoader(logger).Load(ctx, cfg.FilePath)
		if err == nil {
			return schedule
		}
		logger.Warn().Err(err).Msg("failed to load rate schedule file, using default schedule")
	}

	return pricing.DefaultSchedule()
}
