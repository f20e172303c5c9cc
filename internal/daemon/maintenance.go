package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/focusd/internal/config"
	"git.home.luguber.info/inful/focusd/internal/logfields"
)

// MaintenanceStore is the slice of the storage layer the scheduler needs.
type MaintenanceStore interface {
	Checkpoint(ctx context.Context) error
	CompletedSince(ctx context.Context, since time.Time) (int64, error)
}

// Maintenance runs periodic housekeeping: WAL checkpoints and a daily
// summary log line of completed sessions.
type Maintenance struct {
	scheduler gocron.Scheduler
	store     MaintenanceStore
	logger    *slog.Logger
}

// NewMaintenance creates the scheduler and registers both jobs.
func NewMaintenance(cfg config.MaintenanceConfig, store MaintenanceStore, logger *slog.Logger) (*Maintenance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	m := &Maintenance{scheduler: s, store: store, logger: logger}

	_, err = s.NewJob(
		gocron.DurationJob(cfg.CheckpointIntervalDuration()),
		gocron.NewTask(m.runCheckpoint),
		gocron.WithName("wal-checkpoint"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule checkpoint job: %w", err)
	}

	hour, minute := cfg.SummaryClock()
	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(m.runDailySummary),
		gocron.WithName("daily-summary"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule summary job: %w", err)
	}

	return m, nil
}

// Start begins the scheduler.
func (m *Maintenance) Start() {
	m.logger.Info("Starting maintenance scheduler")
	m.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (m *Maintenance) Stop() error {
	m.logger.Info("Stopping maintenance scheduler")
	return m.scheduler.Shutdown()
}

func (m *Maintenance) runCheckpoint() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.store.Checkpoint(ctx); err != nil {
		m.logger.Error("WAL checkpoint failed", logfields.Job("wal-checkpoint"), logfields.Error(err))
		return
	}
	m.logger.Debug("WAL checkpoint complete", logfields.Job("wal-checkpoint"))
}

func (m *Maintenance) runDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := m.store.CompletedSince(ctx, midnight)
	if err != nil {
		m.logger.Error("Daily summary failed", logfields.Job("daily-summary"), logfields.Error(err))
		return
	}
	m.logger.Info("Daily session summary",
		logfields.Job("daily-summary"),
		"date", midnight.Format("2006-01-02"),
		"completed_sessions", count)
}
