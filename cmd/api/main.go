package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	availabilityHandler "github.com/jwalitptl/booking-engine/internal/handler/availability"
	bookingHandler "github.com/jwalitptl/booking-engine/internal/handler/booking"
	healthHandler "github.com/jwalitptl/booking-engine/internal/handler/health"
	scheduleHandler "github.com/jwalitptl/booking-engine/internal/handler/schedule"

	"github.com/jwalitptl/booking-engine/internal/config"
	"github.com/jwalitptl/booking-engine/internal/middleware"
	"github.com/jwalitptl/booking-engine/internal/repository/postgres"
	"github.com/jwalitptl/booking-engine/internal/router"
	availabilityService "github.com/jwalitptl/booking-engine/internal/service/availability"
	bookingService "github.com/jwalitptl/booking-engine/internal/service/booking"
	scheduleService "github.com/jwalitptl/booking-engine/internal/service/schedule"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/messaging/redis"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	scheduleRepo := postgres.NewScheduleRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("booking_engine", "api")

	scheduleSvc := scheduleService.NewService(scheduleRepo, assignmentRepo, appLogger)
	availabilitySvc := availabilityService.NewService(scheduleSvc, bookingRepo)
	bookingSvc := bookingService.NewService(bookingRepo, availabilitySvc, appLogger, m)

	identity := middleware.NewIdentityMiddleware(cfg.Identity.Secret)

	healthH := healthHandler.NewHandler(db)
	availabilityH := availabilityHandler.NewHandler(availabilitySvc, m)
	bookingH := bookingHandler.NewHandler(bookingSvc)
	scheduleH := scheduleHandler.NewHandler(scheduleSvc)

	r := router.NewRouter(
		identity,
		healthH,
		availabilityH,
		bookingH,
		scheduleH,
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "booking_engine",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Relay committed outbox events alongside the API. The standalone
	// worker binary does the same job when the relay needs to scale
	// independently.
	zl := log.Logger
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, m)
	go outboxProcessor.Start(processorCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopProcessor()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
