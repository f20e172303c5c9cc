package interval

import (
	"time"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
)

// Transition functions below are pure: they take the current record and the
// wall-clock time captured at transition time, and return either the next
// record or a classified rejection. Callers persist the result; on error the
// input record is returned unchanged.

// New builds a fresh PENDING interval from validated create params. The caller
// assigns the id and owner.
func New(id, ownerID string, p CreateParams, now time.Time) Interval {
	return Interval{
		ID:                     id,
		OwnerID:                ownerID,
		Title:                  p.Title,
		Description:            p.Description,
		Kind:                   p.Kind,
		PlannedDurationMinutes: p.PlannedDurationMinutes,
		Status:                 StatusPending,
		Visible:                true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Start transitions PENDING -> RUNNING. The single-running-per-owner check is
// the service's responsibility; this function only enforces the per-record rule.
func Start(iv Interval, now time.Time) (Interval, error) {
	if iv.Status != StatusPending {
		return iv, derrors.InvalidStateError("can only start a pending interval").
			WithContext("status", string(iv.Status)).
			Build()
	}
	next := iv.Clone()
	next.Status = StatusRunning
	next.StartedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Pause transitions RUNNING -> PAUSED and adds the running segment's length,
// floored to whole seconds, to the accumulator. StartedAt is left as a
// historical marker for the segment that just ended.
func Pause(iv Interval, now time.Time) (Interval, error) {
	if iv.Status != StatusRunning {
		return iv, derrors.InvalidStateError("can only pause a running interval").
			WithContext("status", string(iv.Status)).
			Build()
	}
	next := iv.Clone()
	if next.StartedAt != nil {
		elapsed := now.Sub(*next.StartedAt)
		if elapsed > 0 {
			next.AccumulatedSeconds += int64(elapsed.Seconds())
		}
	}
	next.Status = StatusPaused
	next.UpdatedAt = now
	return next, nil
}

// Resume transitions PAUSED -> RUNNING. StartedAt is reset: each running
// segment is timed independently and only the accumulator persists across
// segments. The single-running check is re-applied by the service.
func Resume(iv Interval, now time.Time) (Interval, error) {
	if iv.Status != StatusPaused {
		return iv, derrors.InvalidStateError("can only resume a paused interval").
			WithContext("status", string(iv.Status)).
			Build()
	}
	next := iv.Clone()
	next.Status = StatusRunning
	next.StartedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Complete transitions RUNNING|PAUSED -> COMPLETED and stamps CompletedAt
// exactly once. No accumulation happens here; the accumulator only updates on
// pause.
func Complete(iv Interval, now time.Time) (Interval, error) {
	if iv.Status != StatusRunning && iv.Status != StatusPaused {
		return iv, derrors.InvalidStateError("can only complete a running or paused interval").
			WithContext("status", string(iv.Status)).
			Build()
	}
	next := iv.Clone()
	next.Status = StatusCompleted
	next.CompletedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Cancel transitions any non-terminal state -> CANCELLED. A completed
// interval stays completed.
func Cancel(iv Interval, now time.Time) (Interval, error) {
	if iv.Status == StatusCompleted {
		return iv, derrors.InvalidStateError("cannot cancel a completed interval").Build()
	}
	if iv.Status == StatusCancelled {
		return iv, derrors.InvalidStateError("interval is already cancelled").Build()
	}
	next := iv.Clone()
	next.Status = StatusCancelled
	next.UpdatedAt = now
	return next, nil
}

// SoftDelete hides the record from listings without changing its status.
// Allowed from any state except RUNNING; records are never physically removed.
func SoftDelete(iv Interval, now time.Time) (Interval, error) {
	if iv.Status == StatusRunning {
		return iv, derrors.InvalidStateError("cannot delete a running interval").Build()
	}
	next := iv.Clone()
	next.Visible = false
	next.UpdatedAt = now
	return next, nil
}

// ApplyUpdate applies a validated partial update. Edits are rejected outright
// while RUNNING, and terminal intervals accept no edits at all. The planned
// duration is a business-rule exception: it may only change while PENDING.
func ApplyUpdate(iv Interval, u Update, now time.Time) (Interval, error) {
	switch {
	case iv.Status == StatusRunning:
		return iv, derrors.InvalidStateError("cannot modify a running interval").Build()
	case iv.Status.Terminal():
		return iv, derrors.InvalidStateError("cannot modify a finished interval").
			WithContext("status", string(iv.Status)).
			Build()
	}
	if u.PlannedDurationMinutes != nil && iv.Status != StatusPending {
		return iv, derrors.InvalidStateError("planned duration can only change while the interval is pending").
			WithContext("status", string(iv.Status)).
			Build()
	}
	next := iv.Clone()
	if u.Title != nil {
		next.Title = NormalizeTitle(*u.Title)
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.PlannedDurationMinutes != nil {
		next.PlannedDurationMinutes = *u.PlannedDurationMinutes
	}
	next.UpdatedAt = now
	return next, nil
}

// Elapsed derives the active time consumed so far: the accumulator plus the
// current running segment when the interval is RUNNING. For paused or finished
// intervals it is the accumulator alone; the final RUNNING->COMPLETED segment,
// if any, is CompletedAt minus StartedAt and is the caller's to add since the
// accumulator only updates on pause.
func Elapsed(iv Interval, now time.Time) time.Duration {
	total := time.Duration(iv.AccumulatedSeconds) * time.Second
	if iv.Status == StatusRunning && iv.StartedAt != nil {
		total += now.Sub(*iv.StartedAt)
	}
	return total
}
