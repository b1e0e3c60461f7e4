package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.InfoContext(context.Background(), "Starting finboard-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	startCtx := context.Background()

	factory, backendCfg, backendResult := cli.OpenBackend(startCtx, logger, cfg)

	mirror, err := factory.CreateMirror(startCtx, backendCfg)
	if err != nil {
		logger.ErrorContext(startCtx, "Failed to initialize transaction mirror", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(backendResult.Store, mirror, cfg.SyncBatchSize)
	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(startCtx, "Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.InfoContext(startCtx, "AMQP disabled - relying on periodic sync only", "interval", cfg.SyncInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.WarnContext(ctx, "Sync processor stop error", log.FieldError, err)
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

	// Catch up on anything missed while the worker was down.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed startup sync check", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "Ledger event consumption failed", log.FieldError, err)
			}
		}()
	}

	logger.InfoContext(ctx, "Worker running",
		"backend", backendCfg.Type,
		"batch_size", cfg.SyncBatchSize,
		"interval", cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Worker stopped")
}
