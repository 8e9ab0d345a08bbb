package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/auth"
	"spendwise/internal/budget"
	"spendwise/internal/catalog"
	"spendwise/internal/config"
	apphttp "spendwise/internal/http"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

func main() {
	// Load .env for local development; production passes real env vars.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		store     storage.ExpenseStore
		recStore  storage.RecurringStore
		authStore auth.Storage
	)
	switch cfg.DataBackend {
	case "memory":
		mem := storage.NewMemoryStore()
		store, recStore, authStore = mem, mem, mem
		logger.Info("Initialized in-memory store")
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		store, recStore, authStore = repo, repo, repo
		logger.Info("Initialized SQLite store", "path", cfg.SQLiteDBPath)
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			logger.Error("Failed to load category catalog", "error", err, "path", cfg.CatalogFile)
			os.Exit(1)
		}
		cat = loaded
		logger.Info("Loaded category catalog", "path", cfg.CatalogFile)
	}

	budgets, err := budget.Parse(cfg.CategoryBudgets)
	if err != nil {
		logger.Error("Failed to parse category budgets", "error", err)
		os.Exit(1)
	}

	var publisher services.MirrorPublisher
	if cfg.MirrorEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Sheet mirroring enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Sheet mirroring disabled - no AMQP_URL provided")
	}

	expenses := services.NewExpenseService(store, cat, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:              auth.NewService(authStore, cfg.SessionTTL),
		Expenses:          expenses,
		Importer:          services.NewImportService(store, cat),
		Summaries:         services.NewSummaryService(store),
		Alerts:            services.NewAlertService(store, budgets),
		Recurring:         services.NewRecurringService(recStore, expenses, cat),
		Catalog:           cat,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
