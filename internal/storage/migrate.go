package storage

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version tracks progress.
// Schema changes are an explicit deployment step (focusd migrate), never a
// process-start side effect.
var migrations = []string{
	// 1: interval records with the single-running partial unique index.
	`
	CREATE TABLE intervals (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		planned_duration_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER,
		completed_at INTEGER,
		accumulated_seconds INTEGER NOT NULL DEFAULT 0,
		is_visible INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX idx_intervals_owner_status ON intervals(owner_id, status);
	CREATE UNIQUE INDEX idx_intervals_single_running
		ON intervals(owner_id) WHERE status = 'RUNNING' AND is_visible = 1;
	`,
	// 2: per-owner timer settings.
	`
	CREATE TABLE timer_settings (
		owner_id TEXT PRIMARY KEY,
		focus_minutes INTEGER NOT NULL,
		short_break_minutes INTEGER NOT NULL,
		long_break_minutes INTEGER NOT NULL,
		long_break_after INTEGER NOT NULL,
		sound_enabled INTEGER NOT NULL,
		pause_start_sound INTEGER NOT NULL,
		focus_break_sound INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`,
	// 3: completed session log.
	`
	CREATE TABLE sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		date TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		kind TEXT NOT NULL,
		completed_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX idx_sessions_owner_date ON sessions(owner_id, date);
	`,
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}

// TargetSchemaVersion is the schema version this binary requires.
func TargetSchemaVersion() int {
	return len(migrations)
}

// SchemaVersion reports the applied migration count.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}
