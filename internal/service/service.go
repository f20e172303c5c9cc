// Package service implements interval lifecycle operations on top of the
// record store. It owns the cross-record rules the pure transition functions
// cannot see, most importantly that an owner never has more than one RUNNING
// interval, and it is the single place where transitions are persisted,
// measured, and published.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/interval"
	"git.home.luguber.info/inful/focusd/internal/logfields"
	"git.home.luguber.info/inful/focusd/internal/metrics"
	"git.home.luguber.info/inful/focusd/internal/retry"
	"git.home.luguber.info/inful/focusd/internal/session"
	"git.home.luguber.info/inful/focusd/internal/storage"
)

// EventPublisher receives one notification per successful transition.
// Implementations must not block the caller on broker trouble.
type EventPublisher interface {
	Publish(ctx context.Context, action string, iv interval.Interval)
}

// Options carries the injectable collaborators. Zero values get safe
// defaults: real clock, noop metrics, no events, default logger and policy.
type Options struct {
	Clock    clockwork.Clock
	Recorder metrics.Recorder
	Events   EventPublisher
	Logger   *slog.Logger
	Retry    retry.Policy
}

// Service coordinates interval, settings, and session operations.
type Service struct {
	store  storage.Store
	clock  clockwork.Clock
	rec    metrics.Recorder
	events EventPublisher
	logger *slog.Logger
	policy retry.Policy
}

// New builds a Service over the given store.
func New(store storage.Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := opts.Retry.Validate(); err != nil {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Service{
		store:  store,
		clock:  opts.Clock,
		rec:    opts.Recorder,
		events: opts.Events,
		logger: opts.Logger,
		policy: opts.Retry,
	}
}

// Now exposes the service clock so callers derive elapsed values from the
// same time source the transitions use.
func (s *Service) Now() time.Time {
	return s.clock.Now().UTC()
}

// RunningIntervals counts RUNNING intervals across all owners.
func (s *Service) RunningIntervals(ctx context.Context) (int, error) {
	return s.store.RunningCount(ctx)
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return derrors.ValidationError("owner id is required").Build()
	}
	return nil
}

// Create validates the parameters and persists a new PENDING interval.
func (s *Service) Create(ctx context.Context, ownerID string, p interval.CreateParams) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return interval.Interval{}, err
	}

	iv := interval.New(uuid.NewString(), ownerID, p, s.Now())
	err := s.transact(ctx, "create", func(tx storage.Tx) error {
		return tx.InsertInterval(ctx, iv)
	})
	if err != nil {
		return interval.Interval{}, err
	}

	s.logger.Info("Interval created",
		logfields.IntervalID(iv.ID),
		logfields.OwnerID(ownerID),
		logfields.Kind(string(iv.Kind)))
	return iv, nil
}

// Get returns one visible interval scoped to its owner.
func (s *Service) Get(ctx context.Context, ownerID, id string) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	return s.store.GetInterval(ctx, id, ownerID)
}

// Active returns the owner's RUNNING or PAUSED interval, or nil.
func (s *Service) Active(ctx context.Context, ownerID string) (*interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.FindActiveByOwner(ctx, ownerID)
}

// List returns the owner's visible intervals, newest first.
func (s *Service) List(ctx context.Context, ownerID string, opts storage.ListOptions) ([]interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListByOwner(ctx, ownerID, opts.Clamp())
}

// Stats returns the owner's lifetime aggregate counts.
func (s *Service) Stats(ctx context.Context, ownerID string) (interval.Stats, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Stats{}, err
	}
	return s.store.Stats(ctx, ownerID)
}

// Update applies a partial edit to a PENDING or PAUSED interval.
func (s *Service) Update(ctx context.Context, ownerID, id string, u interval.Update) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	if u.Empty() {
		return interval.Interval{}, derrors.ValidationError("update contains no fields").Build()
	}
	if err := u.Validate(); err != nil {
		return interval.Interval{}, err
	}
	return s.mutate(ctx, "update", ownerID, id, func(iv interval.Interval, now time.Time) (interval.Interval, error) {
		return interval.ApplyUpdate(iv, u, now)
	})
}

// Delete hides the interval from listings. The record and its history remain.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	_, err := s.mutate(ctx, "delete", ownerID, id, interval.SoftDelete)
	return err
}

// Start transitions PENDING -> RUNNING, enforcing the one-running-interval
// rule inside the same transaction that persists the change.
func (s *Service) Start(ctx context.Context, ownerID, id string) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	return s.transition(ctx, "start", ownerID, id, interval.Start, true)
}

// Pause transitions RUNNING -> PAUSED, folding the finished segment into the
// duration accumulator.
func (s *Service) Pause(ctx context.Context, ownerID, id string) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	return s.transition(ctx, "pause", ownerID, id, interval.Pause, false)
}

// Resume transitions PAUSED -> RUNNING. The one-running-interval rule is
// re-checked: another interval may have started while this one was paused.
func (s *Service) Resume(ctx context.Context, ownerID, id string) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	return s.transition(ctx, "resume", ownerID, id, interval.Resume, true)
}

// Complete finishes the interval and appends a session log entry.
func (s *Service) Complete(ctx context.Context, ownerID, id string) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	action := "complete"
	start := s.clock.Now()
	var next interval.Interval

	err := s.withRetry(ctx, action, func() error {
		return s.store.Transact(ctx, func(tx storage.Tx) error {
			iv, err := tx.GetInterval(ctx, id, ownerID)
			if err != nil {
				return err
			}
			now := s.Now()
			next, err = interval.Complete(iv, now)
			if err != nil {
				return err
			}
			if err := tx.UpdateInterval(ctx, next); err != nil {
				return err
			}
			return tx.InsertSession(ctx, session.FromInterval(next, now))
		})
	})
	s.observe(action, start, err)
	if err != nil {
		return interval.Interval{}, err
	}
	s.afterTransition(ctx, action, next)
	return next, nil
}

// Cancel abandons a non-completed interval.
func (s *Service) Cancel(ctx context.Context, ownerID, id string) (interval.Interval, error) {
	if err := requireOwner(ownerID); err != nil {
		return interval.Interval{}, err
	}
	return s.transition(ctx, "cancel", ownerID, id, interval.Cancel, false)
}

// transition runs one get-transform-update cycle. When checkRunning is set
// the owner must have no other RUNNING interval; the check and the write
// share a transaction so concurrent starts serialize.
func (s *Service) transition(ctx context.Context, action, ownerID, id string, fn func(interval.Interval, time.Time) (interval.Interval, error), checkRunning bool) (interval.Interval, error) {
	start := s.clock.Now()
	var next interval.Interval

	err := s.withRetry(ctx, action, func() error {
		return s.store.Transact(ctx, func(tx storage.Tx) error {
			iv, err := tx.GetInterval(ctx, id, ownerID)
			if err != nil {
				return err
			}
			if checkRunning {
				running, err := tx.FindRunningByOwner(ctx, ownerID)
				if err != nil {
					return err
				}
				if running != nil && running.ID != id {
					return derrors.ConflictError("an interval is already running; pause or complete it first").
						WithContext("running_interval_id", running.ID).
						Build()
				}
			}
			next, err = fn(iv, s.Now())
			if err != nil {
				return err
			}
			return tx.UpdateInterval(ctx, next)
		})
	})
	s.observe(action, start, err)
	if err != nil {
		return interval.Interval{}, err
	}
	s.afterTransition(ctx, action, next)
	return next, nil
}

// mutate is transition without the running-interval check; edits and deletes
// share the same get-transform-update shape.
func (s *Service) mutate(ctx context.Context, action, ownerID, id string, fn func(interval.Interval, time.Time) (interval.Interval, error)) (interval.Interval, error) {
	return s.transition(ctx, action, ownerID, id, fn, false)
}

// transact wraps a write-only unit of work with the busy-retry policy.
func (s *Service) transact(ctx context.Context, action string, fn func(tx storage.Tx) error) error {
	start := s.clock.Now()
	err := s.withRetry(ctx, action, func() error {
		return s.store.Transact(ctx, fn)
	})
	s.observe(action, start, err)
	return err
}

// withRetry repeats fn per the busy-retry policy while the failure is a
// retryable storage error. Each attempt starts from a clean slate because
// failed transactions roll back completely.
func (s *Service) withRetry(ctx context.Context, action string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !derrors.IsRetryable(err) || !derrors.HasCategory(err, derrors.CategoryStorage) {
			return err
		}
		if attempt >= s.policy.MaxRetries {
			return err
		}
		delay := s.policy.Delay(attempt + 1)
		s.rec.IncStoreRetry(action)
		s.logger.Warn("Store busy, retrying",
			logfields.Action(action),
			"attempt", attempt+1,
			"delay", delay.String())
		select {
		case <-ctx.Done():
			return derrors.WrapError(ctx.Err(), derrors.CategoryRuntime, "operation cancelled").Build()
		case <-s.clock.After(delay):
		}
	}
}

func (s *Service) observe(action string, start time.Time, err error) {
	s.rec.ObserveTransitionDuration(action, s.clock.Now().Sub(start))
	s.rec.IncTransitionResult(action, resultFor(err))
}

// afterTransition handles the fire-and-forget side effects of a persisted
// transition: the lifecycle event, the log line, and the running gauge.
func (s *Service) afterTransition(ctx context.Context, action string, iv interval.Interval) {
	s.logger.Info("Interval transition",
		logfields.Action(action),
		logfields.IntervalID(iv.ID),
		logfields.OwnerID(iv.OwnerID),
		logfields.Status(string(iv.Status)))
	if s.events != nil {
		s.events.Publish(ctx, action, iv)
	}
	if n, err := s.store.RunningCount(ctx); err == nil {
		s.rec.SetActiveIntervals(n)
	}
}

func resultFor(err error) metrics.ResultLabel {
	if err == nil {
		return metrics.ResultSuccess
	}
	switch derrors.GetCategory(err) {
	case derrors.CategoryValidation:
		return metrics.ResultValidation
	case derrors.CategoryNotFound:
		return metrics.ResultNotFound
	case derrors.CategoryInvalidState:
		return metrics.ResultInvalidState
	case derrors.CategoryConflict:
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}
