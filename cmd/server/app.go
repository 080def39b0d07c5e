package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tubetone/tubetone-api/internal/backend"
	"github.com/tubetone/tubetone-api/internal/cache"
	"github.com/tubetone/tubetone-api/internal/config"
	"github.com/tubetone/tubetone-api/internal/platform/logger"
	"github.com/tubetone/tubetone-api/internal/platform/memory"
	"github.com/tubetone/tubetone-api/internal/platform/postgres"
	"github.com/tubetone/tubetone-api/internal/platform/youtube"
	"github.com/tubetone/tubetone-api/internal/service"
	"github.com/tubetone/tubetone-api/internal/task"
)

// application holds the wired dependency graph for the server process.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	db        *sql.DB
	artifacts *memory.ArtifactStore
	cache     *cache.Cache
	manager   *task.Manager
	runner    *task.Runner
	service   service.ConversionService
}

// newApplication loads configuration and wires every component together,
// bottom-up: stores, cache, backend, manager, runner, service.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server.LogLevel)
	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Conversion.Backend,
		"workers", cfg.Conversion.WorkerCount)

	db, err := openDatabase(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		return nil, err
	}

	taskStore := postgres.NewTaskStore(db)
	cacheStore := postgres.NewCacheStore(db)
	artifacts := memory.NewArtifactStore()

	resultCache := cache.New(cacheStore, cfg.Conversion.CacheTTL(), appLogger)
	manager := task.NewManager(taskStore, artifacts, appLogger)

	converter, err := buildConverter(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	retryCfg := backend.RetryConfig{
		MaxRetries: cfg.Conversion.MaxRetries,
		BaseDelay:  cfg.Conversion.RetryDelay(),
	}
	factory := task.NewConversionTaskFactory(manager, converter, resultCache, retryCfg, appLogger)

	runnerCfg := task.RunnerConfig{
		WorkerCount:            cfg.Conversion.WorkerCount,
		QueueSize:              cfg.Conversion.QueueSize,
		TaskTimeout:            cfg.Conversion.Timeout(),
		StuckTaskAge:           cfg.Conversion.Timeout() + time.Minute,
		StuckTaskCheckInterval: cfg.Conversion.StuckCheckInterval(),
	}
	runner := task.NewRunner(manager, factory, runnerCfg, appLogger)

	conversionService, err := service.NewConversionService(
		manager, runner, factory, resultCache, cfg.Conversion.TaskTTL(), appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to build conversion service: %w", err)
	}

	return &application{
		config:    cfg,
		logger:    appLogger,
		db:        db,
		artifacts: artifacts,
		cache:     resultCache,
		manager:   manager,
		runner:    runner,
		service:   conversionService,
	}, nil
}

// buildConverter selects the conversion backend for this deployment.
func buildConverter(cfg *config.Config, appLogger *slog.Logger) (backend.Converter, error) {
	switch cfg.Conversion.Backend {
	case "remote":
		return backend.NewRemote(backend.RemoteConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
			APIHost: cfg.Provider.APIHost,
		}, appLogger), nil
	case "pipeline":
		return backend.NewPipeline(backend.PipelineConfig{
			YtDlpPath:  cfg.Pipeline.YtDlpPath,
			FfmpegPath: cfg.Pipeline.FfmpegPath,
		}, youtube.NewClient(), appLogger), nil
	default:
		return nil, fmt.Errorf("unknown conversion backend %q", cfg.Conversion.Backend)
	}
}

func openDatabase(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Run starts the task runner, the expiry sweeper, and the HTTP server, then
// blocks until the context is cancelled and everything has shut down.
func (app *application) Run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go app.sweepLoop(sweepCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		cancelSweep()
		app.runner.Stop()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error("http server shutdown failed", "error", err)
	}

	cancelSweep()
	app.runner.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("database close failed", "error", err)
	}

	app.logger.Info("shutdown complete")
	return nil
}

// sweepLoop periodically removes expired task records, cache entries, and
// artifact bytes so the store tracks the TTL contract.
func (app *application) sweepLoop(ctx context.Context) {
	interval := app.config.Conversion.SweepInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)

			if _, err := app.manager.SweepExpired(sweepCtx); err != nil {
				app.logger.Error("task sweep failed", "error", err)
			}
			if _, err := app.cache.Sweep(sweepCtx); err != nil {
				app.logger.Error("cache sweep failed", "error", err)
			}
			if dropped := app.artifacts.Sweep(app.config.Conversion.TaskTTL()); dropped > 0 {
				app.logger.Info("swept stale artifacts", "dropped", dropped)
			}

			cancel()
		}
	}
}
