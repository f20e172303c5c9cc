package interval

import (
	"testing"
	"time"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func pendingInterval() Interval {
	p := CreateParams{Title: "deep work", Kind: KindWork, PlannedDurationMinutes: 25}
	return New("iv-1", "owner-1", p, t0)
}

func TestNewStartsPendingAndVisible(t *testing.T) {
	iv := pendingInterval()
	if iv.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", iv.Status)
	}
	if !iv.Visible {
		t.Error("new intervals must be visible")
	}
	if iv.StartedAt != nil || iv.CompletedAt != nil {
		t.Error("timestamps must be unset at creation")
	}
	if iv.AccumulatedSeconds != 0 {
		t.Errorf("accumulator must start at 0, got %d", iv.AccumulatedSeconds)
	}
}

func TestStartSetsStartedAt(t *testing.T) {
	iv := pendingInterval()
	now := t0.Add(time.Minute)

	next, err := Start(iv, now)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if next.Status != StatusRunning {
		t.Fatalf("expected RUNNING, got %s", next.Status)
	}
	if next.StartedAt == nil || !next.StartedAt.Equal(now) {
		t.Errorf("expected started_at %v, got %v", now, next.StartedAt)
	}
}

func TestStartRejectsNonPending(t *testing.T) {
	for _, status := range []Status{StatusRunning, StatusPaused, StatusCompleted, StatusCancelled} {
		iv := pendingInterval()
		iv.Status = status
		got, err := Start(iv, t0)
		if err == nil {
			t.Fatalf("start from %s should fail", status)
		}
		if !derrors.HasCategory(err, derrors.CategoryInvalidState) {
			t.Errorf("start from %s: expected invalid_state, got %v", status, err)
		}
		if got.Status != status {
			t.Errorf("rejected start must not mutate the record, status changed to %s", got.Status)
		}
	}
}

// Scenario: start, then pause after 300 simulated seconds; the accumulator
// holds the running segment's length.
func TestPauseAccumulatesRunningSegment(t *testing.T) {
	iv := pendingInterval()
	running, err := Start(iv, t0)
	if err != nil {
		t.Fatal(err)
	}

	paused, err := Pause(running, t0.Add(300*time.Second))
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if paused.Status != StatusPaused {
		t.Fatalf("expected PAUSED, got %s", paused.Status)
	}
	if paused.AccumulatedSeconds != 300 {
		t.Errorf("expected accumulated 300s, got %d", paused.AccumulatedSeconds)
	}
	// StartedAt stays as a historical marker of the ended segment.
	if paused.StartedAt == nil || !paused.StartedAt.Equal(t0) {
		t.Errorf("pause must not clear started_at, got %v", paused.StartedAt)
	}
}

func TestPauseFloorsSubSecondElapsed(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	paused, err := Pause(running, t0.Add(2500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if paused.AccumulatedSeconds != 2 {
		t.Errorf("expected floor to 2s, got %d", paused.AccumulatedSeconds)
	}
}

func TestPauseRejectsPending(t *testing.T) {
	iv := pendingInterval()
	got, err := Pause(iv, t0)
	if err == nil || !derrors.HasCategory(err, derrors.CategoryInvalidState) {
		t.Fatalf("pausing a pending interval must fail with invalid_state, got %v", err)
	}
	if got != iv {
		t.Error("rejected pause must return the record unchanged")
	}
}

// Scenario: resume resets started_at and leaves the accumulator alone.
func TestResumeResetsStartedAt(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	paused, _ := Pause(running, t0.Add(300*time.Second))

	resumeAt := t0.Add(10 * time.Minute)
	resumed, err := Resume(paused, resumeAt)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != StatusRunning {
		t.Fatalf("expected RUNNING, got %s", resumed.Status)
	}
	if !resumed.StartedAt.After(*paused.StartedAt) {
		t.Error("resumed started_at must be strictly greater than the previous one")
	}
	if resumed.AccumulatedSeconds != 300 {
		t.Errorf("resume must not change the accumulator, got %d", resumed.AccumulatedSeconds)
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	if _, err := Resume(running, t0); err == nil {
		t.Fatal("resuming a running interval must fail")
	}
}

func TestCompleteFromRunningAndPaused(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	done, err := Complete(running, t0.Add(25*time.Minute))
	if err != nil {
		t.Fatalf("complete from RUNNING failed: %v", err)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected COMPLETED with completed_at set, got %s %v", done.Status, done.CompletedAt)
	}
	// No accumulation on completion; only pause updates the accumulator.
	if done.AccumulatedSeconds != 0 {
		t.Errorf("complete must not touch the accumulator, got %d", done.AccumulatedSeconds)
	}

	paused, _ := Pause(running, t0.Add(5*time.Minute))
	done2, err := Complete(paused, t0.Add(6*time.Minute))
	if err != nil {
		t.Fatalf("complete from PAUSED failed: %v", err)
	}
	if done2.AccumulatedSeconds != 300 {
		t.Errorf("accumulator must survive completion, got %d", done2.AccumulatedSeconds)
	}
}

func TestCompleteRejectsPendingAndTerminal(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusCompleted, StatusCancelled} {
		iv := pendingInterval()
		iv.Status = status
		if _, err := Complete(iv, t0); err == nil {
			t.Errorf("complete from %s should fail", status)
		}
	}
}

// Scenario: cancelling a completed interval is rejected and the status stays COMPLETED.
func TestCancelRejectsCompleted(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	done, _ := Complete(running, t0.Add(time.Minute))

	got, err := Cancel(done, t0.Add(2*time.Minute))
	if err == nil || !derrors.HasCategory(err, derrors.CategoryInvalidState) {
		t.Fatalf("expected invalid_state, got %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status must remain COMPLETED, got %s", got.Status)
	}
}

func TestCancelFromNonTerminal(t *testing.T) {
	for _, prep := range []func() Interval{
		pendingInterval,
		func() Interval { iv, _ := Start(pendingInterval(), t0); return iv },
		func() Interval {
			iv, _ := Start(pendingInterval(), t0)
			iv, _ = Pause(iv, t0.Add(time.Minute))
			return iv
		},
	} {
		iv := prep()
		got, err := Cancel(iv, t0.Add(time.Hour))
		if err != nil {
			t.Fatalf("cancel from %s failed: %v", iv.Status, err)
		}
		if got.Status != StatusCancelled {
			t.Errorf("expected CANCELLED, got %s", got.Status)
		}
	}
}

func TestSoftDeleteRejectsRunningOnly(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	if _, err := SoftDelete(running, t0); err == nil {
		t.Fatal("soft delete of a running interval must fail")
	}

	done, _ := Complete(running, t0.Add(time.Minute))
	hidden, err := SoftDelete(done, t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("soft delete of a completed interval failed: %v", err)
	}
	if hidden.Visible {
		t.Error("soft delete must clear visibility")
	}
	if hidden.Status != StatusCompleted {
		t.Errorf("soft delete must not change status, got %s", hidden.Status)
	}
}

func TestApplyUpdateRules(t *testing.T) {
	newTitle := "renamed"
	newDur := 50

	// RUNNING rejects any edit with the specific message.
	running, _ := Start(pendingInterval(), t0)
	_, err := ApplyUpdate(running, Update{Title: &newTitle}, t0)
	if err == nil {
		t.Fatal("edit of a running interval must fail")
	}
	if c, _ := derrors.AsClassified(err); c.Message() != "cannot modify a running interval" {
		t.Errorf("unexpected message: %s", c.Message())
	}

	// Terminal states are immutable.
	done, _ := Complete(running, t0.Add(time.Minute))
	if _, err := ApplyUpdate(done, Update{Title: &newTitle}, t0); err == nil {
		t.Fatal("edit of a completed interval must fail")
	}

	// PENDING allows everything.
	updated, err := ApplyUpdate(pendingInterval(), Update{Title: &newTitle, PlannedDurationMinutes: &newDur}, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("edit of a pending interval failed: %v", err)
	}
	if updated.Title != "renamed" || updated.PlannedDurationMinutes != 50 {
		t.Errorf("update not applied: %+v", updated)
	}

	// PAUSED allows labels but not the planned duration.
	paused, _ := Pause(running, t0.Add(time.Minute))
	if _, err := ApplyUpdate(paused, Update{Title: &newTitle}, t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("title edit of a paused interval failed: %v", err)
	}
	if _, err := ApplyUpdate(paused, Update{PlannedDurationMinutes: &newDur}, t0.Add(2*time.Minute)); err == nil {
		t.Fatal("duration edit outside PENDING must fail")
	}
}

// The accumulator only ever grows across any legal sequence of operations.
func TestAccumulatorMonotonic(t *testing.T) {
	iv := pendingInterval()
	now := t0
	last := int64(0)

	step := func(f func(Interval, time.Time) (Interval, error), d time.Duration) {
		now = now.Add(d)
		next, err := f(iv, now)
		if err != nil {
			t.Fatalf("transition failed: %v", err)
		}
		if next.AccumulatedSeconds < last {
			t.Fatalf("accumulator decreased: %d -> %d", last, next.AccumulatedSeconds)
		}
		last = next.AccumulatedSeconds
		iv = next
	}

	step(Start, time.Minute)
	step(Pause, 90*time.Second)
	step(Resume, time.Minute)
	step(Pause, 30*time.Second)
	step(Resume, time.Minute)
	step(Complete, 45*time.Second)

	if last != 120 {
		t.Errorf("expected 90+30=120 accumulated seconds, got %d", last)
	}
}

func TestElapsedIncludesLiveSegment(t *testing.T) {
	running, _ := Start(pendingInterval(), t0)
	paused, _ := Pause(running, t0.Add(60*time.Second))
	resumed, _ := Resume(paused, t0.Add(120*time.Second))

	got := Elapsed(resumed, t0.Add(150*time.Second))
	if got != 90*time.Second {
		t.Errorf("expected 90s elapsed, got %s", got)
	}
	if Elapsed(paused, t0.Add(time.Hour)) != 60*time.Second {
		t.Error("paused elapsed must not grow with wall clock")
	}
}
