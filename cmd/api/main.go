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

	"github.com/saqreed/super-sto-sub000/internal/config"
	"github.com/saqreed/super-sto-sub000/internal/handler"
	appointmentHandler "github.com/saqreed/super-sto-sub000/internal/handler/appointment"
	"github.com/saqreed/super-sto-sub000/internal/middleware"
	"github.com/saqreed/super-sto-sub000/internal/repository/postgres"
	"github.com/saqreed/super-sto-sub000/internal/router"
	appointmentService "github.com/saqreed/super-sto-sub000/internal/service/appointment"
	costingService "github.com/saqreed/super-sto-sub000/internal/service/costing"
	"github.com/saqreed/super-sto-sub000/internal/worker"
	"github.com/saqreed/super-sto-sub000/pkg/auth"
	"github.com/saqreed/super-sto-sub000/pkg/logger"
	messagingRedis "github.com/saqreed/super-sto-sub000/pkg/messaging/redis"
	"github.com/saqreed/super-sto-sub000/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.New(&logger.Config{Level: level, TimeFormat: time.RFC3339, Output: os.Stdout})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.New("supersto", "workflow")

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	priceResolver := costingService.NewCachingResolver(catalogRepo, cfg.Catalog.PriceCacheTTL, m)
	costingSvc := costingService.NewService(priceResolver, m)
	appointmentSvc := appointmentService.NewService(appointmentRepo, catalogRepo, costingSvc, m, appLogger)

	// HTTP layer
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	healthH := handler.NewHealthHandler(db)
	apptH := appointmentHandler.NewHandler(appointmentSvc)

	r := router.New(authMiddleware, healthH, router.Config{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimitRPS:     cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:   cfg.RateLimit.Burst,
		CORS:             middleware.DefaultCORSConfig(),
		MetricsPrefix:    "supersto",
	}, apptH)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Side-effect dispatcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		RetainFor:     cfg.Outbox.RetainFor,
	}, appLogger, m)
	go processor.Start(ctx)

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server shutdown failed")
	}
}
