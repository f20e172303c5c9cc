package interval

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
)

// NormalizeTitle NFC-normalizes and trims a user-supplied title. Validation
// runs on the normalized form so visually identical titles compare equal.
func NormalizeTitle(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}

// ValidateTitle checks the (already normalized) title is non-empty.
func ValidateTitle(title string) error {
	if title == "" {
		return derrors.ValidationError("title must not be empty").Build()
	}
	return nil
}

// ValidateDuration checks the planned duration is within 1-120 minutes.
func ValidateDuration(minutes int) error {
	if minutes < MinPlannedMinutes || minutes > MaxPlannedMinutes {
		return derrors.ValidationError(
			fmt.Sprintf("planned duration must be between %d and %d minutes", MinPlannedMinutes, MaxPlannedMinutes)).
			WithContext("planned_duration_minutes", minutes).
			Build()
	}
	return nil
}

// ValidateKind checks the kind is a known enum value.
func ValidateKind(k Kind) error {
	if !k.Valid() {
		return derrors.ValidationError("kind must be one of WORK, SHORT_BREAK, LONG_BREAK").
			WithContext("kind", string(k)).
			Build()
	}
	return nil
}

// CreateParams carries the caller-supplied fields for a new interval.
type CreateParams struct {
	Title                  string `json:"title"`
	Description            string `json:"description,omitempty"`
	Kind                   Kind   `json:"kind"`
	PlannedDurationMinutes int    `json:"planned_duration_minutes"`
}

// Normalize applies defaults and title normalization in place.
func (p *CreateParams) Normalize() {
	p.Title = NormalizeTitle(p.Title)
	if p.Kind == "" {
		p.Kind = KindWork
	}
	if p.PlannedDurationMinutes == 0 {
		p.PlannedDurationMinutes = 25
	}
}

// Validate checks all fields with the same rules as the edit path.
func (p *CreateParams) Validate() error {
	if err := ValidateTitle(p.Title); err != nil {
		return err
	}
	if err := ValidateKind(p.Kind); err != nil {
		return err
	}
	return ValidateDuration(p.PlannedDurationMinutes)
}

// Update is the enumerated partial-update structure for the edit path. Only
// the fields listed here can change through edit; status, owner, and kind are
// deliberately absent so they cannot be set from the outside.
type Update struct {
	Title                  *string `json:"title,omitempty"`
	Description            *string `json:"description,omitempty"`
	PlannedDurationMinutes *int    `json:"planned_duration_minutes,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.PlannedDurationMinutes == nil
}

// Validate re-checks changed fields with the same rules as create.
func (u Update) Validate() error {
	if u.Title != nil {
		if err := ValidateTitle(NormalizeTitle(*u.Title)); err != nil {
			return err
		}
	}
	if u.PlannedDurationMinutes != nil {
		if err := ValidateDuration(*u.PlannedDurationMinutes); err != nil {
			return err
		}
	}
	return nil
}
