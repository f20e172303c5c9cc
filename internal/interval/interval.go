// Package interval contains the interval domain model and the pure state
// machine governing its lifecycle. Nothing in this package performs I/O; the
// service layer feeds records in and writes results back through the store.
package interval

import (
	"time"
)

// Status enumerates the lifecycle states of an interval.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether s counts as an active interval (started, not finished).
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Kind enumerates the work/break flavors of an interval. Immutable after creation.
type Kind string

const (
	KindWork       Kind = "WORK"
	KindShortBreak Kind = "SHORT_BREAK"
	KindLongBreak  Kind = "LONG_BREAK"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWork, KindShortBreak, KindLongBreak:
		return true
	}
	return false
}

// Duration limits for planned interval length, in minutes.
const (
	MinPlannedMinutes = 1
	MaxPlannedMinutes = 120
)

// Interval is one work/break timer instance owned by a user.
//
// AccumulatedSeconds counts total running time logged so far: every pause adds
// the length of the running segment that just ended. It never decreases, and
// the final running segment (RUNNING straight into COMPLETED) is not added;
// callers derive total elapsed time from AccumulatedSeconds plus
// CompletedAt-StartedAt when the interval completed from RUNNING.
type Interval struct {
	ID                     string     `json:"id"`
	OwnerID                string     `json:"owner_id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description,omitempty"`
	Kind                   Kind       `json:"kind"`
	PlannedDurationMinutes int        `json:"planned_duration_minutes"`
	Status                 Status     `json:"status"`
	StartedAt              *time.Time `json:"started_at,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	AccumulatedSeconds     int64      `json:"accumulated_seconds"`
	Visible                bool       `json:"is_visible"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Clone returns a deep copy; transition functions operate on copies so a
// rejected operation leaves the caller's record untouched.
func (iv Interval) Clone() Interval {
	out := iv
	if iv.StartedAt != nil {
		t := *iv.StartedAt
		out.StartedAt = &t
	}
	if iv.CompletedAt != nil {
		t := *iv.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Stats summarizes an owner's visible intervals.
type Stats struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	WorkCompleted  int64   `json:"work_completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// Rate computes completed/total as a percentage, with 0 for an empty set.
func (s *Stats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}
