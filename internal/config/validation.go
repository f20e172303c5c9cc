package config

import (
	"fmt"
	"time"
)

// configValidator coordinates validation across the configuration domains.
type configValidator struct {
	cfg *Config
}

func (v *configValidator) validate() error {
	if err := v.validateServer(); err != nil {
		return err
	}
	if err := v.validateDatabase(); err != nil {
		return err
	}
	if err := v.validateEvents(); err != nil {
		return err
	}
	return v.validateMaintenance()
}

func (v *configValidator) validateServer() error {
	s := v.cfg.Server
	if s.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	for field, raw := range map[string]string{
		"server.read_timeout":     s.ReadTimeout,
		"server.write_timeout":    s.WriteTimeout,
		"server.shutdown_timeout": s.ShutdownTimeout,
	} {
		if err := validateDuration(field, raw); err != nil {
			return err
		}
	}
	return nil
}

func (v *configValidator) validateDatabase() error {
	d := v.cfg.Database
	if d.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	switch d.BusyRetry.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return fmt.Errorf("invalid database.busy_retry.backoff: %s (allowed: fixed|linear|exponential)", d.BusyRetry.Backoff)
	}
	if err := validateDuration("database.busy_retry.base_delay", d.BusyRetry.BaseDelay); err != nil {
		return err
	}
	if err := validateDuration("database.busy_retry.max_delay", d.BusyRetry.MaxDelay); err != nil {
		return err
	}
	if d.BusyRetry.MaxDelayDuration() < d.BusyRetry.BaseDelayDuration() {
		return fmt.Errorf("database.busy_retry.max_delay (%s) must be >= base_delay (%s)",
			d.BusyRetry.MaxDelay, d.BusyRetry.BaseDelay)
	}
	if d.BusyRetry.MaxAttempts < 1 {
		return fmt.Errorf("database.busy_retry.max_attempts must be at least 1: %d", d.BusyRetry.MaxAttempts)
	}
	return nil
}

func (v *configValidator) validateEvents() error {
	e := v.cfg.Events
	if !e.Enabled {
		return nil
	}
	if e.URL == "" {
		return fmt.Errorf("events.url cannot be empty when events are enabled")
	}
	if e.SubjectPrefix == "" {
		return fmt.Errorf("events.subject_prefix cannot be empty when events are enabled")
	}
	return nil
}

func (v *configValidator) validateMaintenance() error {
	m := v.cfg.Maintenance
	if err := validateDuration("maintenance.checkpoint_interval", m.CheckpointInterval); err != nil {
		return err
	}
	var hour, minute int
	if _, err := fmt.Sscanf(m.SummaryTime, "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("invalid maintenance.summary_time: %s (expected HH:MM)", m.SummaryTime)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid maintenance.summary_time: %s (hour 0-23, minute 0-59)", m.SummaryTime)
	}
	return nil
}

func validateDuration(field, raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %s: %w", field, raw, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive: %s", field, raw)
	}
	return nil
}
