/**
 * @description
 * Entry point for the billing service. Serves the HTTP API and, when enabled,
 * runs the month-end bill generation job in-process.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rjunioramorim/app-cobrancas/internal/api"
	"github.com/rjunioramorim/app-cobrancas/internal/app"
	"github.com/rjunioramorim/app-cobrancas/internal/config"
	"github.com/rjunioramorim/app-cobrancas/internal/store"
	billingrabbit "github.com/rjunioramorim/app-cobrancas/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid business timezone", "timezone", cfg.BusinessTimezone, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	dbpool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewRepository(dbpool, loc)

	var publisher billingrabbit.Publisher = &billingrabbit.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		if producer, err := billingrabbit.NewEventProducer(cfg.RabbitMQURL, logger); err == nil {
			publisher = producer
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}
	defer publisher.Close()

	var limiter api.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid REDIS_URL, rate limiting disabled", "error", err)
		} else {
			redisClient := redis.NewClient(opts)
			defer redisClient.Close()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable, rate limiter will fail open", "error", err)
			}
			limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
		}
	}

	service := app.NewService(repository, publisher, cfg.BusinessTimezone,
		app.WithLogger(logger),
		app.WithMetrics(app.DefaultMetrics()),
		app.WithEventsExchange(cfg.EventsExchange),
	)
	handler := api.NewHandler(service, logger)
	router := api.NewRouter(handler, service, api.RouterConfig{
		Auth: api.AuthConfig{
			Secret:         cfg.AuthSecret,
			CookieName:     cfg.SessionCookieName,
			InternalAPIKey: cfg.InternalAPIKey,
		},
		AllowedOrigins:                cfg.AllowedOrigins(),
		RateLimiter:                   limiter,
		IntegrationRateLimitPerMinute: cfg.IntegrationRateLimitPerMinute,
		Logger:                        logger,
	})

	jobs := app.NewJobs(service, app.SystemClock{}, loc, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg.BillingJobSchedule)
	if cfg.BillingJobEnabled {
		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		logger.Info("scheduler started", "schedule", cfg.BillingJobSchedule, "timezone", loc.String())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before the shutdown deadline")
	}

	logger.Info("server stopped")
}
