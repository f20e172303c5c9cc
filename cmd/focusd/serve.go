package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/focusd/internal/config"
	"git.home.luguber.info/inful/focusd/internal/daemon"
	"git.home.luguber.info/inful/focusd/internal/events"
	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/logfields"
	"git.home.luguber.info/inful/focusd/internal/metrics"
	"git.home.luguber.info/inful/focusd/internal/retry"
	"git.home.luguber.info/inful/focusd/internal/server"
	"git.home.luguber.info/inful/focusd/internal/service"
	"git.home.luguber.info/inful/focusd/internal/storage"
)

// runMigrate opens the database and applies pending migrations.
func runMigrate(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "load configuration").Build()
	}
	logger := setupLogging(cfg.Logging, verbose)

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	v, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	logger.Info("Migrations applied", "schema_version", v, "path", cfg.Database.Path)
	return nil
}

// runServe wires the full daemon: store, service, HTTP server, maintenance
// scheduler, config watcher, and the optional NATS publisher.
func runServe(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "load configuration").Build()
	}
	logger := setupLogging(cfg.Logging, verbose)

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current < storage.TargetSchemaVersion() {
		return derrors.ConfigError(
			fmt.Sprintf("database schema is at version %d, need %d; run 'focusd migrate'", current, storage.TargetSchemaVersion())).
			Build()
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher, err = events.Connect(events.Options{
			URL:           cfg.Events.URL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
			StreamName:    cfg.Events.Stream,
		}, logger)
		if err != nil {
			// The daemon is useful without a broker; log and continue.
			logger.Warn("Event publishing disabled", logfields.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	policy := retry.NewPolicy(
		retry.BackoffMode(cfg.Database.BusyRetry.Backoff),
		cfg.Database.BusyRetry.BaseDelayDuration(),
		cfg.Database.BusyRetry.MaxDelayDuration(),
		cfg.Database.BusyRetry.MaxAttempts,
	)

	opts := service.Options{
		Recorder: recorder,
		Logger:   logger,
		Retry:    policy,
	}
	if publisher != nil {
		opts.Events = publisher
	}
	svc := service.New(store, opts)

	maintenance, err := daemon.NewMaintenance(cfg.Maintenance, store, logger)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "create maintenance scheduler").Build()
	}
	maintenance.Start()
	defer func() {
		if err := maintenance.Stop(); err != nil {
			logger.Error("Stop maintenance scheduler", logfields.Error(err))
		}
	}()

	srv := server.New(cfg.Server, svc, metrics.HTTPHandler(registry), logger)

	watcher, err := daemon.NewConfigWatcher(configPath, cfg, func(next *config.Config) {
		setupLogging(next.Logging, verbose)
	}, logger)
	if err != nil {
		logger.Warn("Config watching disabled", logfields.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Config watching disabled", logfields.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("focusd started", "addr", cfg.Server.Addr, "db", cfg.Database.Path)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryRuntime, "HTTP server failed").Build()
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "HTTP server shutdown").Build()
	}
	return nil
}
