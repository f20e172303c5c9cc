// Package settings holds per-owner timer preferences: the durations a client
// should use when it creates intervals, plus sound toggles. One row per owner,
// created on first read with the classic pomodoro defaults.
package settings

import (
	"fmt"
	"time"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
)

// Duration limits, in minutes, matching interval validation.
const (
	minMinutes        = 1
	maxMinutes        = 120
	maxLongBreakAfter = 12
)

// TimerSettings are an owner's timer preferences.
type TimerSettings struct {
	OwnerID           string    `json:"owner_id"`
	FocusMinutes      int       `json:"focus_minutes"`
	ShortBreakMinutes int       `json:"short_break_minutes"`
	LongBreakMinutes  int       `json:"long_break_minutes"`
	LongBreakAfter    int       `json:"long_break_after"`
	SoundEnabled      bool      `json:"sound_enabled"`
	PauseStartSound   bool      `json:"pause_start_sound"`
	FocusBreakSound   bool      `json:"focus_break_sound"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Defaults returns the settings an owner gets before ever saving any.
func Defaults(ownerID string, now time.Time) TimerSettings {
	return TimerSettings{
		OwnerID:           ownerID,
		FocusMinutes:      25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		LongBreakAfter:    4,
		SoundEnabled:      true,
		PauseStartSound:   true,
		FocusBreakSound:   true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Update is the enumerated partial-update structure for settings.
type Update struct {
	FocusMinutes      *int  `json:"focus_minutes,omitempty"`
	ShortBreakMinutes *int  `json:"short_break_minutes,omitempty"`
	LongBreakMinutes  *int  `json:"long_break_minutes,omitempty"`
	LongBreakAfter    *int  `json:"long_break_after,omitempty"`
	SoundEnabled      *bool `json:"sound_enabled,omitempty"`
	PauseStartSound   *bool `json:"pause_start_sound,omitempty"`
	FocusBreakSound   *bool `json:"focus_break_sound,omitempty"`
}

// Validate checks changed durations against the same 1-120 rule as intervals.
func (u Update) Validate() error {
	check := func(field string, v *int) error {
		if v != nil && (*v < minMinutes || *v > maxMinutes) {
			return derrors.ValidationError(
				fmt.Sprintf("%s must be between %d and %d minutes", field, minMinutes, maxMinutes)).
				Build()
		}
		return nil
	}
	if err := check("focus_minutes", u.FocusMinutes); err != nil {
		return err
	}
	if err := check("short_break_minutes", u.ShortBreakMinutes); err != nil {
		return err
	}
	if err := check("long_break_minutes", u.LongBreakMinutes); err != nil {
		return err
	}
	if u.LongBreakAfter != nil && (*u.LongBreakAfter < 1 || *u.LongBreakAfter > maxLongBreakAfter) {
		return derrors.ValidationError(
			fmt.Sprintf("long_break_after must be between 1 and %d", maxLongBreakAfter)).
			Build()
	}
	return nil
}

// Apply returns a copy of s with the update's set fields applied.
func (u Update) Apply(s TimerSettings, now time.Time) TimerSettings {
	if u.FocusMinutes != nil {
		s.FocusMinutes = *u.FocusMinutes
	}
	if u.ShortBreakMinutes != nil {
		s.ShortBreakMinutes = *u.ShortBreakMinutes
	}
	if u.LongBreakMinutes != nil {
		s.LongBreakMinutes = *u.LongBreakMinutes
	}
	if u.LongBreakAfter != nil {
		s.LongBreakAfter = *u.LongBreakAfter
	}
	if u.SoundEnabled != nil {
		s.SoundEnabled = *u.SoundEnabled
	}
	if u.PauseStartSound != nil {
		s.PauseStartSound = *u.PauseStartSound
	}
	if u.FocusBreakSound != nil {
		s.FocusBreakSound = *u.FocusBreakSound
	}
	s.UpdatedAt = now
	return s
}
