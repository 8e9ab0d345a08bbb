package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/catalog"
	"spendwise/internal/config"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

// sweepInterval is how often due recurring templates are checked. The
// dueness rules make sweeps idempotent within a period, so the exact
// cadence only bounds how late an expense can land.
const sweepInterval = time.Hour

func main() {
	// Load .env for local development; production passes real env vars.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			logger.Error("Failed to load category catalog", "error", err, "path", cfg.CatalogFile)
			os.Exit(1)
		}
	}

	var publisher services.MirrorPublisher
	if cfg.MirrorEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, spawned expenses will not be mirrored", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	expenses := services.NewExpenseService(repo, cat, publisher)
	recurring := services.NewRecurringService(repo, expenses, cat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			if created, err := recurring.ProcessDue(ctx); err != nil {
				logger.Error("Recurring sweep failed", "error", err)
			} else if created > 0 {
				logger.Info("Recurring sweep created expenses", "created", created)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Recurring worker stopped")
}
