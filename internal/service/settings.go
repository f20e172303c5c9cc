package service

import (
	"context"
	"time"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/logfields"
	"git.home.luguber.info/inful/focusd/internal/session"
	"git.home.luguber.info/inful/focusd/internal/settings"
	"git.home.luguber.info/inful/focusd/internal/storage"
)

// Settings returns the owner's timer settings, creating the default row on
// first access so every owner always has one.
func (s *Service) Settings(ctx context.Context, ownerID string) (settings.TimerSettings, error) {
	if err := requireOwner(ownerID); err != nil {
		return settings.TimerSettings{}, err
	}
	var out settings.TimerSettings
	err := s.withRetry(ctx, "settings_get", func() error {
		return s.store.Transact(ctx, func(tx storage.Tx) error {
			var err error
			out, err = s.settingsOrDefaults(ctx, tx, ownerID)
			return err
		})
	})
	if err != nil {
		return settings.TimerSettings{}, err
	}
	return out, nil
}

// UpdateSettings applies a partial settings change.
func (s *Service) UpdateSettings(ctx context.Context, ownerID string, u settings.Update) (settings.TimerSettings, error) {
	if err := requireOwner(ownerID); err != nil {
		return settings.TimerSettings{}, err
	}
	if err := u.Validate(); err != nil {
		return settings.TimerSettings{}, err
	}
	var out settings.TimerSettings
	err := s.withRetry(ctx, "settings_update", func() error {
		return s.store.Transact(ctx, func(tx storage.Tx) error {
			current, err := s.settingsOrDefaults(ctx, tx, ownerID)
			if err != nil {
				return err
			}
			out = u.Apply(current, s.Now())
			return tx.PutSettings(ctx, out)
		})
	})
	if err != nil {
		return settings.TimerSettings{}, err
	}
	s.logger.Info("Timer settings updated", logfields.OwnerID(ownerID))
	return out, nil
}

func (s *Service) settingsOrDefaults(ctx context.Context, tx storage.Tx, ownerID string) (settings.TimerSettings, error) {
	current, err := tx.GetSettings(ctx, ownerID)
	if err == nil {
		return current, nil
	}
	if !derrors.HasCategory(err, derrors.CategoryNotFound) {
		return settings.TimerSettings{}, err
	}
	current = settings.Defaults(ownerID, s.Now())
	if err := tx.PutSettings(ctx, current); err != nil {
		return settings.TimerSettings{}, err
	}
	return current, nil
}

// Sessions lists the owner's completed-session log for the date range.
// A zero range defaults to the last 30 days.
func (s *Service) Sessions(ctx context.Context, ownerID string, from, to time.Time) ([]session.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	from, to, err := s.normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.ListSessions(ctx, ownerID, from, to)
}

// DailyTotals aggregates the owner's sessions per calendar day.
func (s *Service) DailyTotals(ctx context.Context, ownerID string, from, to time.Time) ([]session.DailyTotal, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	from, to, err := s.normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.DailyTotals(ctx, ownerID, from, to)
}

func (s *Service) normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	now := s.Now()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, derrors.ValidationError("from date must not be after to date").
			WithContext("from", from.Format(session.DateLayout)).
			WithContext("to", to.Format(session.DateLayout)).
			Build()
	}
	return from, to, nil
}
