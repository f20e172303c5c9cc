// Package metrics defines observability hooks for interval transitions and
// their Prometheus implementation.
package metrics

import "time"

// ResultLabel enumerates transition result categories for counters.
type ResultLabel string

const (
	ResultSuccess      ResultLabel = "success"
	ResultValidation   ResultLabel = "validation"
	ResultNotFound     ResultLabel = "not_found"
	ResultInvalidState ResultLabel = "invalid_state"
	ResultConflict     ResultLabel = "conflict"
	ResultError        ResultLabel = "error"
)

// Recorder defines observability hooks for transition metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe on
// the zero NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveTransitionDuration(action string, d time.Duration)
	IncTransitionResult(action string, result ResultLabel)
	IncStoreRetry(action string)
	SetActiveIntervals(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTransitionDuration(string, time.Duration) {}
func (NoopRecorder) IncTransitionResult(string, ResultLabel)         {}
func (NoopRecorder) IncStoreRetry(string)                            {}
func (NoopRecorder) SetActiveIntervals(int)                          {}
