// Package storage persists interval, settings, and session records in SQLite.
// All mutating operations run inside immediate transactions so the
// check-then-act sequence behind the single-running-interval rule is
// serialized; a partial unique index backs the rule at the schema level as
// well, so two RUNNING rows per owner cannot be persisted even by a buggy
// caller.
package storage

import (
	"context"
	"time"

	"git.home.luguber.info/inful/focusd/internal/interval"
	"git.home.luguber.info/inful/focusd/internal/session"
	"git.home.luguber.info/inful/focusd/internal/settings"
)

// ListOptions carries pagination for owner-scoped listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListLimit caps listings when the caller asks for nothing specific.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Clamp normalizes pagination to the supported range.
func (o ListOptions) Clamp() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Tx exposes the record operations available inside one atomic unit of work.
// Reads inside a Tx see the transaction's own writes.
type Tx interface {
	// GetInterval returns the visible interval matching (id, owner). A miss on
	// either field is a not-found error, never an authorization error.
	GetInterval(ctx context.Context, id, ownerID string) (interval.Interval, error)
	// FindRunningByOwner returns the owner's RUNNING interval, or nil.
	FindRunningByOwner(ctx context.Context, ownerID string) (*interval.Interval, error)
	InsertInterval(ctx context.Context, iv interval.Interval) error
	UpdateInterval(ctx context.Context, iv interval.Interval) error

	InsertSession(ctx context.Context, s session.Session) error

	// GetSettings returns the owner's settings row, or a not-found error.
	GetSettings(ctx context.Context, ownerID string) (settings.TimerSettings, error)
	PutSettings(ctx context.Context, s settings.TimerSettings) error
}

// Store is the durable record store consumed by the service layer.
type Store interface {
	// Transact runs fn inside an immediate transaction. A rollback leaves no
	// partial state, so callers may retry on serialization conflicts.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	GetInterval(ctx context.Context, id, ownerID string) (interval.Interval, error)
	// FindActiveByOwner returns the owner's RUNNING or PAUSED interval, or nil.
	FindActiveByOwner(ctx context.Context, ownerID string) (*interval.Interval, error)
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]interval.Interval, error)
	Stats(ctx context.Context, ownerID string) (interval.Stats, error)
	// RunningCount counts RUNNING intervals across all owners, for the
	// active-intervals gauge.
	RunningCount(ctx context.Context) (int, error)

	ListSessions(ctx context.Context, ownerID string, from, to time.Time) ([]session.Session, error)
	DailyTotals(ctx context.Context, ownerID string, from, to time.Time) ([]session.DailyTotal, error)

	GetSettings(ctx context.Context, ownerID string) (settings.TimerSettings, error)

	Close() error
}
