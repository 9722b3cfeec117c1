package main

import (
	"context"
	"errors"
	"os"
	"time"

	"solde/internal/amqp"
	"solde/internal/cli"
	applog "solde/internal/log"
	"solde/internal/services"
	gsheet "solde/internal/sheets/google"
	"solde/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)
	logger.Info("Starting solde-worker", applog.FieldOperation, applog.OpStartup)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	be := cli.InitBackend(context.Background(), logger, cfg)
	st := be.Store

	// Mirroring to Google Sheets is optional.
	var mirror worker.TransactionMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	recompute := worker.NewRecomputeWorker(services.NewBalanceRecalculator(st), st, mirror)

	// The sweep also runs once at start to catch messages lost while the
	// worker was down.
	scheduler, err := worker.NewScheduler(cfg.RecomputeSchedule, true, func(ctx context.Context) {
		if _, err := recompute.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Recompute sweep failed", applog.FieldError, err)
		}
	})
	if err != nil {
		logger.Error("Invalid recompute schedule", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if scheduler.IsRunning() {
			if err := scheduler.Stop(ctx); err != nil {
				logger.Warn("Scheduler stop error", applog.FieldError, err)
			}
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start recompute scheduler", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeRecompute(ctx, recompute.HandleRecompute)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
