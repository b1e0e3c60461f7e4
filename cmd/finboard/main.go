package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/analytics"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		logger.ErrorContext(ctx, "Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	_, backendCfg, backendResult := cli.OpenBackend(ctx, logger, cfg)
	ledgerStore := backendResult.Store

	// Events are optional; the API works without a broker.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.InfoContext(ctx, "AMQP publisher enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.InfoContext(ctx, "AMQP disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(ledgerStore, publisher)
	dashboard := analytics.NewService(ledgerStore, analytics.Options{
		DefaultPeriod:      cfg.AnalyticsDefaultPeriod,
		ChronologicalTrend: cfg.ChronologicalTrend(),
		Location:           loc,
	})

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, ledger, ledgerStore, apphttp.Options{
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Location:           loc,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.WarnContext(ctx, "AMQP close error", log.FieldError, err)
			}
		}
		if err := backendResult.Cleanup(); err != nil {
			logger.WarnContext(ctx, "Ledger store close error", log.FieldError, err)
		}
	})

	logger.InfoContext(ctx, "Starting finboard server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
