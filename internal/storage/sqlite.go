package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/interval"
	"git.home.luguber.info/inful/focusd/internal/session"
	"git.home.luguber.info/inful/focusd/internal/settings"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for an
// in-memory database. The schema is not created here; run Migrate first.
func Open(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "open database").Build()
	}
	// SQLite allows one writer; a single pooled connection avoids in-process
	// lock churn and keeps :memory: databases coherent across calls.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Checkpoint truncates the WAL; run periodically by the maintenance scheduler.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return classify(err, "wal checkpoint")
	}
	return nil
}

// Transact runs fn inside an immediate transaction. Any error rolls the
// transaction back; nothing is persisted from a failed attempt.
func (s *SQLiteStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

// sqliteTx implements Tx over one *sql.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

const intervalColumns = `id, owner_id, title, description, kind, planned_duration_minutes,
	status, started_at, completed_at, accumulated_seconds, is_visible, created_at, updated_at`

func (t *sqliteTx) GetInterval(ctx context.Context, id, ownerID string) (interval.Interval, error) {
	return getInterval(ctx, t.tx, id, ownerID)
}

func (t *sqliteTx) FindRunningByOwner(ctx context.Context, ownerID string) (*interval.Interval, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+intervalColumns+" FROM intervals WHERE owner_id = ? AND status = ? AND is_visible = 1",
		ownerID, string(interval.StatusRunning))
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "query running interval")
	}
	return &iv, nil
}

func (t *sqliteTx) InsertInterval(ctx context.Context, iv interval.Interval) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO intervals ("+intervalColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		iv.ID, iv.OwnerID, iv.Title, iv.Description, string(iv.Kind), iv.PlannedDurationMinutes,
		string(iv.Status), unixOrNil(iv.StartedAt), unixOrNil(iv.CompletedAt),
		iv.AccumulatedSeconds, boolToInt(iv.Visible), iv.CreatedAt.Unix(), iv.UpdatedAt.Unix())
	if err != nil {
		return classify(err, "insert interval")
	}
	return nil
}

func (t *sqliteTx) UpdateInterval(ctx context.Context, iv interval.Interval) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE intervals SET title = ?, description = ?, planned_duration_minutes = ?,
			status = ?, started_at = ?, completed_at = ?, accumulated_seconds = ?,
			is_visible = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		iv.Title, iv.Description, iv.PlannedDurationMinutes,
		string(iv.Status), unixOrNil(iv.StartedAt), unixOrNil(iv.CompletedAt), iv.AccumulatedSeconds,
		boolToInt(iv.Visible), iv.UpdatedAt.Unix(),
		iv.ID, iv.OwnerID)
	if err != nil {
		return classify(err, "update interval")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.NotFoundError("interval not found").Build()
	}
	return nil
}

func (t *sqliteTx) InsertSession(ctx context.Context, sess session.Session) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO sessions (owner_id, date, duration_minutes, kind, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.OwnerID, sess.Date, sess.DurationMinutes, string(sess.Kind),
		sess.CompletedAt.Unix(), sess.CreatedAt.Unix())
	if err != nil {
		return classify(err, "insert session")
	}
	return nil
}

func (t *sqliteTx) GetSettings(ctx context.Context, ownerID string) (settings.TimerSettings, error) {
	return getSettings(ctx, t.tx, ownerID)
}

func (t *sqliteTx) PutSettings(ctx context.Context, s settings.TimerSettings) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO timer_settings (owner_id, focus_minutes, short_break_minutes, long_break_minutes,
			long_break_after, sound_enabled, pause_start_sound, focus_break_sound, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
			focus_minutes = excluded.focus_minutes,
			short_break_minutes = excluded.short_break_minutes,
			long_break_minutes = excluded.long_break_minutes,
			long_break_after = excluded.long_break_after,
			sound_enabled = excluded.sound_enabled,
			pause_start_sound = excluded.pause_start_sound,
			focus_break_sound = excluded.focus_break_sound,
			updated_at = excluded.updated_at`,
		s.OwnerID, s.FocusMinutes, s.ShortBreakMinutes, s.LongBreakMinutes,
		s.LongBreakAfter, boolToInt(s.SoundEnabled), boolToInt(s.PauseStartSound),
		boolToInt(s.FocusBreakSound), s.CreatedAt.Unix(), s.UpdatedAt.Unix())
	if err != nil {
		return classify(err, "put settings")
	}
	return nil
}

// Read paths outside transactions.

func (s *SQLiteStore) GetInterval(ctx context.Context, id, ownerID string) (interval.Interval, error) {
	return getInterval(ctx, s.db, id, ownerID)
}

func (s *SQLiteStore) FindActiveByOwner(ctx context.Context, ownerID string) (*interval.Interval, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+intervalColumns+` FROM intervals
		 WHERE owner_id = ? AND status IN (?, ?) AND is_visible = 1
		 ORDER BY updated_at DESC LIMIT 1`,
		ownerID, string(interval.StatusRunning), string(interval.StatusPaused))
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "query active interval")
	}
	return &iv, nil
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]interval.Interval, error) {
	opts = opts.Clamp()
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+intervalColumns+` FROM intervals
		 WHERE owner_id = ? AND is_visible = 1
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, classify(err, "list intervals")
	}
	defer rows.Close()

	out := make([]interval.Interval, 0)
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, classify(err, "scan interval")
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate intervals")
	}
	return out, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, ownerID string) (interval.Stats, error) {
	var st interval.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(status = ?), 0),
			COALESCE(SUM(status = ? AND kind = ?), 0)
		 FROM intervals WHERE owner_id = ? AND is_visible = 1`,
		string(interval.StatusCompleted), string(interval.StatusCompleted), string(interval.KindWork),
		ownerID).Scan(&st.Total, &st.Completed, &st.WorkCompleted)
	if err != nil {
		return interval.Stats{}, classify(err, "query stats")
	}
	st.CompletionRate = st.Rate()
	return st, nil
}

// RunningCount counts RUNNING intervals across all owners.
func (s *SQLiteStore) RunningCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM intervals WHERE status = ? AND is_visible = 1",
		string(interval.StatusRunning)).Scan(&n)
	if err != nil {
		return 0, classify(err, "count running intervals")
	}
	return n, nil
}

// CompletedSince counts sessions logged at or after the given instant across
// all owners. Used by the maintenance scheduler for the daily summary.
func (s *SQLiteStore) CompletedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE completed_at >= ?", since.UTC().Unix()).Scan(&n)
	if err != nil {
		return 0, classify(err, "count completed sessions")
	}
	return n, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, ownerID string, from, to time.Time) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, date, duration_minutes, kind, completed_at, created_at
		 FROM sessions WHERE owner_id = ? AND date >= ? AND date <= ?
		 ORDER BY completed_at DESC, id DESC`,
		ownerID, from.UTC().Format(session.DateLayout), to.UTC().Format(session.DateLayout))
	if err != nil {
		return nil, classify(err, "list sessions")
	}
	defer rows.Close()

	out := make([]session.Session, 0)
	for rows.Next() {
		var (
			sess                   session.Session
			kind                   string
			completedAt, createdAt int64
		)
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Date, &sess.DurationMinutes, &kind, &completedAt, &createdAt); err != nil {
			return nil, classify(err, "scan session")
		}
		sess.Kind = interval.Kind(kind)
		sess.CompletedAt = time.Unix(completedAt, 0).UTC()
		sess.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate sessions")
	}
	return out, nil
}

func (s *SQLiteStore) DailyTotals(ctx context.Context, ownerID string, from, to time.Time) ([]session.DailyTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, COUNT(*), COALESCE(SUM(duration_minutes), 0), COALESCE(SUM(kind = ?), 0)
		 FROM sessions WHERE owner_id = ? AND date >= ? AND date <= ?
		 GROUP BY date ORDER BY date`,
		string(interval.KindWork), ownerID,
		from.UTC().Format(session.DateLayout), to.UTC().Format(session.DateLayout))
	if err != nil {
		return nil, classify(err, "query daily totals")
	}
	defer rows.Close()

	out := make([]session.DailyTotal, 0)
	for rows.Next() {
		var d session.DailyTotal
		if err := rows.Scan(&d.Date, &d.Sessions, &d.TotalMinutes, &d.WorkSessions); err != nil {
			return nil, classify(err, "scan daily total")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate daily totals")
	}
	return out, nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, ownerID string) (settings.TimerSettings, error) {
	return getSettings(ctx, s.db, ownerID)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getInterval(ctx context.Context, q querier, id, ownerID string) (interval.Interval, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+intervalColumns+" FROM intervals WHERE id = ? AND owner_id = ? AND is_visible = 1",
		id, ownerID)
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return interval.Interval{}, derrors.NotFoundError("interval not found").Build()
	}
	if err != nil {
		return interval.Interval{}, classify(err, "query interval")
	}
	return iv, nil
}

func getSettings(ctx context.Context, q querier, ownerID string) (settings.TimerSettings, error) {
	var (
		s                                         settings.TimerSettings
		soundEnabled, pauseStartSound, focusBreak int
		createdAt, updatedAt                      int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT owner_id, focus_minutes, short_break_minutes, long_break_minutes, long_break_after,
			sound_enabled, pause_start_sound, focus_break_sound, created_at, updated_at
		 FROM timer_settings WHERE owner_id = ?`, ownerID).
		Scan(&s.OwnerID, &s.FocusMinutes, &s.ShortBreakMinutes, &s.LongBreakMinutes, &s.LongBreakAfter,
			&soundEnabled, &pauseStartSound, &focusBreak, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.TimerSettings{}, derrors.NotFoundError("timer settings not found").Build()
	}
	if err != nil {
		return settings.TimerSettings{}, classify(err, "query settings")
	}
	s.SoundEnabled = soundEnabled != 0
	s.PauseStartSound = pauseStartSound != 0
	s.FocusBreakSound = focusBreak != 0
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return s, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterval(row rowScanner) (interval.Interval, error) {
	var (
		iv                     interval.Interval
		kind, status           string
		startedAt, completedAt sql.NullInt64
		visible                int
		createdAt, updatedAt   int64
	)
	err := row.Scan(&iv.ID, &iv.OwnerID, &iv.Title, &iv.Description, &kind, &iv.PlannedDurationMinutes,
		&status, &startedAt, &completedAt, &iv.AccumulatedSeconds, &visible, &createdAt, &updatedAt)
	if err != nil {
		return interval.Interval{}, err
	}
	iv.Kind = interval.Kind(kind)
	iv.Status = interval.Status(status)
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0).UTC()
		iv.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		iv.CompletedAt = &t
	}
	iv.Visible = visible != 0
	iv.CreatedAt = time.Unix(createdAt, 0).UTC()
	iv.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return iv, nil
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SQLite primary result codes relevant to classification.
const (
	sqliteBusy       = 5
	sqliteLocked     = 6
	sqliteConstraint = 19
)

// classify maps driver errors onto the service error taxonomy. Busy/locked
// are retryable serialization conflicts; a unique-constraint hit on the
// single-running index is the conflict rule firing at the schema level.
func classify(err error, op string) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return derrors.StorageError("database is busy: " + op).Build()
		case sqliteConstraint:
			// Only the single-running index means "already running"; any
			// other constraint hit falls through to a plain storage error.
			if strings.Contains(se.Error(), "idx_intervals_single_running") {
				return derrors.ConflictError("an interval is already running; pause or complete it first").Build()
			}
		}
	}
	return derrors.WrapError(err, derrors.CategoryStorage, op).Build()
}
