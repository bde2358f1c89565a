package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/app"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/config"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/payments"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/refunds"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/storage/postgres"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/storage/redis"
	transporthttp "github.com/Mas2205/UrbanFootCenter-sub002/internal/transport/http"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/worker"
	"github.com/Mas2205/UrbanFootCenter-sub002/migrations"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const (
	serviceName     = "urbanfoot-api"
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger, migrateUp)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, migrateUp bool) error {
	configureTracing(cfg, logger)

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrations.Apply(startupCtx, pool, logger); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	var deliveries app.DeliveryCache
	if cfg.RedisURL != "" {
		cache, err := redis.Open(startupCtx, cfg.RedisURL, cfg.DeliveryCacheTTL)
		if err != nil {
			return err
		}
		defer cache.Close()
		deliveries = cache
	} else {
		logger.Info("REDIS_URL not set, webhook dedupe uses the database only")
	}

	sink, err := newRefundSink(startupCtx, cfg, logger)
	if err != nil {
		return err
	}

	clk := clock.NewSystem()
	dispatcher := refunds.NewDispatcher(postgres.NewRefundRepository(pool), sink, clk, logger)

	engine := app.NewEngine(app.Deps{
		Catalog:      postgres.NewCatalogRepository(pool),
		Reservations: postgres.NewReservationRepository(pool),
		Payments:     postgres.NewPaymentRepository(pool),
		Closures:     postgres.NewClosureRepository(pool),
		Templates:    postgres.NewTemplateRepository(pool),
		Gateway:      payments.NewGateway(cfg.WebhookSecrets),
		Checkout:     payments.NewLinker(cfg.CheckoutBaseURL, cfg.Mode),
		Deliveries:   deliveries,
		Refunds:      dispatcher,
		Clock:        clk,
		Logger:       logger,
		Location:     cfg.Location,
	})

	runner := worker.NewRunner(cfg.WorkerInterval, logger, []worker.Task{
		{Name: "refund_dispatch", Run: func(ctx context.Context) error {
			_, err := dispatcher.DispatchDue(ctx)
			return err
		}},
		{Name: "complete_elapsed", Run: func(ctx context.Context) error {
			_, err := engine.Reservations.CompleteElapsed(ctx)
			return err
		}},
	}, worker.WithWake(dispatcher.Wake()), worker.WithTracing(cfg.EnableTracing))

	limiter := transporthttp.NewRateLimiter(cfg.WebhookRateRPS, cfg.WebhookBurst)

	routerCfg := transporthttp.RouterConfig{
		Services: transporthttp.Services{
			Availability: engine.Resolver,
			Reservations: engine.Reservations,
			Settlement:   engine.Payments,
			Webhooks:     engine.Payments,
			Reviews:      engine.Payments,
			Closures:     engine.Closures,
			Templates:    engine.Templates,
		},
		Tokens:      auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, clk),
		DB:          pool,
		WebhookRate: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}
	if cfg.EnableTracing {
		routerCfg.TracingName = serviceName
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           transporthttp.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go func() { _ = runner.Run(workerCtx) }()
	go limiter.RunCleanup(workerCtx, 5*time.Minute, 30*time.Minute)

	logger.Info("api listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "timezone", cfg.Location.String())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	stopWorker()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "err", err)
	}
	logger.Info("server stopped")
	return nil
}

func configureTracing(cfg config.Config, logger *slog.Logger) {
	if !cfg.EnableTracing {
		return
	}
	daemon := os.Getenv("AWS_XRAY_DAEMON_ADDRESS")
	if daemon == "" {
		daemon = "127.0.0.1:2000"
	}
	if err := xray.Configure(xray.Config{DaemonAddr: daemon, ServiceVersion: Version}); err != nil {
		logger.Warn("failed to configure X-Ray, using defaults", "err", err)
		if err := xray.Configure(xray.Config{}); err != nil {
			logger.Error("failed to configure default X-Ray settings", "err", err)
		}
	}
	os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
}

// newRefundSink starts Step Functions executions when a state machine is
// configured and only logs refunds otherwise.
func newRefundSink(ctx context.Context, cfg config.Config, logger *slog.Logger) (refunds.Sink, error) {
	if cfg.RefundStateMachineARN == "" {
		logger.Info("REFUND_STATE_MACHINE_ARN not set, refunds are settled manually")
		return refunds.NewLogSink(logger), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return refunds.NewSFNSink(sfn.NewFromConfig(awsCfg), cfg.RefundStateMachineARN), nil
}
