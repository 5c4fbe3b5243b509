package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/docsapi/pkg/app"
	"github.com/platinummonkey/docsapi/pkg/config"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}
	defer observability.ShutdownTracing(context.Background(), tp, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to start docsapi")
		os.Exit(1)
	}
	defer a.Close()

	logger.WithField("port", cfg.Server.Port).Info("Starting docsapi")
	if err := a.Run(ctx); err != nil {
		logger.WithError(err).Error("docsapi stopped with error")
		os.Exit(1)
	}
	logger.Info("docsapi stopped")
}
