package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/docsapi/pkg/app"
	"github.com/platinummonkey/docsapi/pkg/config"
	"github.com/platinummonkey/docsapi/pkg/observability"
	"github.com/platinummonkey/docsapi/pkg/storage/sqlstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Queue.Type != "redis" {
		log.Fatalf("docsapi-worker needs the redis queue; the memory queue runs inside docsapi")
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).WithField("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Worker stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Storage.Type,
		DSN:             cfg.Storage.DSN,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
		ConnectTimeout:  cfg.Storage.ConnectTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cfg.Redis.NewClient(ctx)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	broker, err := app.NewBroker(cfg.Queue, redisClient)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	worker, err := app.NewWorker(cfg.Queue, broker, db, logger, metrics)
	if err != nil {
		return err
	}
	scheduler, err := app.NewScheduler(cfg.Queue, broker, metrics, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, observability.NewHealthChecker(db.DB(), redisClient, cfg.Observability.OTelServiceVersion))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(mux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: mux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	scheduler.Start()
	logger.WithField("depth_schedule", cfg.Queue.DepthSchedule).
		WithField("requeue_schedule", cfg.Queue.RequeueSchedule).
		Info("Queue housekeeping scheduled")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown.Shutdown()
	})
	return g.Wait()
}
