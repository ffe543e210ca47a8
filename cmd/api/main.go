package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking-engine/cmd/mainconfig"
	"github.com/wolfman30/salon-booking-engine/internal/api/router"
	"github.com/wolfman30/salon-booking-engine/internal/appointments"
	"github.com/wolfman30/salon-booking-engine/internal/booking"
	"github.com/wolfman30/salon-booking-engine/internal/clock"
	appconfig "github.com/wolfman30/salon-booking-engine/internal/config"
	"github.com/wolfman30/salon-booking-engine/internal/demand"
	"github.com/wolfman30/salon-booking-engine/internal/events"
	"github.com/wolfman30/salon-booking-engine/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/salon-booking-engine/internal/http/middleware"
	"github.com/wolfman30/salon-booking-engine/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-engine/internal/pricing"
	"github.com/wolfman30/salon-booking-engine/internal/slots"
	"github.com/wolfman30/salon-booking-engine/internal/stylists"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon-booking-engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := connectRedis(ctx, cfg, logger)
	defer func() { _ = redisClient.Close() }()

	metricsHandler, bookingMetrics := setupMetrics()
	clk := clock.System{}

	// Engine
	profiles := stylists.NewStore(redisClient, cfg.DefaultServiceTimeGap)
	repo := appointments.NewRepository(pool)
	quoter := pricing.NewQuoter(profiles, repo, demand.NewEstimator(repo), clk, logger)
	slotGenerator := slots.NewGenerator(repo, clk)
	outbox := events.NewOutboxStore(pool)
	service := booking.NewService(booking.Deps{
		Repo:     repo,
		Profiles: profiles,
		Quoter:   quoter,
		Outbox:   outbox,
		Rates:    booking.Rates{Tax: cfg.TaxRateDecimal(), CardFee: cfg.CardFeeRateDecimal()},
		Clock:    clk,
		Metrics:  bookingMetrics,
		Logger:   logger,
	})

	// Event delivery
	eventHandler, err := buildEventHandler(ctx, cfg, redisClient)
	if err != nil {
		logger.Error("failed to configure event publishers", "error", err)
		os.Exit(1)
	}
	deliverer := events.NewDeliverer(outbox, eventHandler, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval).
		WithRecorder(bookingMetrics)
	go deliverer.Start(ctx)

	// HTTP
	r := router.New(&router.Config{
		Logger:  logger,
		Booking: handlers.NewBookingHandler(profiles, quoter, slotGenerator, service, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WriteLimiter:       httpmiddleware.NewRateLimiter(redisClient, cfg.WriteRateLimit, logger),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// connectPostgresPool returns nil when url is empty or the database cannot be
// reached.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
	}
	return client
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// buildEventHandler always publishes to Redis and adds SQS when a queue URL
// is configured.
func buildEventHandler(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client) (events.DeliveryHandler, error) {
	out := events.MultiHandler{events.NewRedisPublisher(redisClient, cfg.EventsRedisChannel)}
	if cfg.EventsQueueURL == "" {
		return out, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	out = append(out, events.NewSQSPublisher(mainconfig.NewSQSClient(awsCfg, cfg), cfg.EventsQueueURL))
	return out, nil
}
