// Package session holds the per-day completed session log. The service
// appends one entry for every interval that reaches COMPLETED; entries are
// read-only afterwards and feed the daily totals view.
package session

import (
	"time"

	"git.home.luguber.info/inful/focusd/internal/interval"
)

// DateLayout is the canonical day key, in UTC.
const DateLayout = "2006-01-02"

// Session records one completed interval against a calendar day.
type Session struct {
	ID              int64         `json:"id"`
	OwnerID         string        `json:"owner_id"`
	Date            string        `json:"date"` // YYYY-MM-DD, UTC
	DurationMinutes int           `json:"duration_minutes"`
	Kind            interval.Kind `json:"kind"`
	CompletedAt     time.Time     `json:"completed_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

// FromInterval builds the log entry for an interval that just completed.
func FromInterval(iv interval.Interval, completedAt time.Time) Session {
	return Session{
		OwnerID:         iv.OwnerID,
		Date:            completedAt.UTC().Format(DateLayout),
		DurationMinutes: iv.PlannedDurationMinutes,
		Kind:            iv.Kind,
		CompletedAt:     completedAt,
		CreatedAt:       completedAt,
	}
}

// DailyTotal aggregates one owner's sessions for one day.
type DailyTotal struct {
	Date         string `json:"date"`
	Sessions     int64  `json:"sessions"`
	TotalMinutes int64  `json:"total_minutes"`
	WorkSessions int64  `json:"work_sessions"`
}
