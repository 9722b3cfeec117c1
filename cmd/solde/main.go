package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"solde/internal/amqp"
	"solde/internal/auth"
	"solde/internal/cache"
	"solde/internal/cli"
	"solde/internal/core"
	apphttp "solde/internal/http"
	applog "solde/internal/log"
	"solde/internal/report"
	"solde/internal/services"
	"solde/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger until the configured level is known.
	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	be := cli.InitBackend(context.Background(), logger, cfg)
	st := be.Store

	var publisher services.RecomputePublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - balances are recomputed inline and by the in-process sweep")
	}

	authCfg := auth.DefaultConfig()
	authCfg.SessionTTL = cfg.SessionTTL
	authCfg.DefaultCurrency = cfg.DefaultCurrency

	balances := services.NewBalanceRecalculator(st)

	reportCache := cache.NewLRUCache[core.YearReport](100, 5*time.Minute)
	cacheManager := cache.NewManager()
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(time.Minute)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         auth.NewService(st, st, st, authCfg),
		Transactions: services.NewTransactionService(st, publisher),
		Goals:        services.NewGoalService(st),
		Balances:     balances,
		Reports:      report.NewService(st, reportCache),
		Store:        st,
		Logger:       logger.WithComponent(applog.ComponentHTTP),
	}, apphttp.Options{
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	// Without a broker nothing else sweeps, so the API process does it.
	var scheduler *worker.Scheduler
	if !cfg.AMQPEnabled() {
		sweeper := worker.NewRecomputeWorker(balances, st, nil)
		scheduler, err = worker.NewScheduler(cfg.RecomputeSchedule, false, func(ctx context.Context) {
			if _, err := sweeper.Sweep(ctx); err != nil {
				logger.Error("Recompute sweep failed", applog.FieldError, err)
			}
		})
		if err != nil {
			logger.Error("Invalid recompute schedule", applog.FieldError, err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if scheduler != nil && scheduler.IsRunning() {
			if err := scheduler.Stop(ctx); err != nil {
				logger.Warn("Scheduler stop error", applog.FieldError, err)
			}
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	if scheduler != nil {
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("Failed to start recompute scheduler", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Recompute sweep scheduled", "schedule", cfg.RecomputeSchedule)
	}

	logger.Info("Starting solde server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
