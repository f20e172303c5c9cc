package metrics

import (
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveTransitionDuration("start", time.Second)
	r.IncTransitionResult("start", ResultSuccess)
	r.IncStoreRetry("start")
	r.SetActiveIntervals(3)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var p *PrometheusRecorder
	p.ObserveTransitionDuration("start", time.Second)
	p.IncTransitionResult("start", ResultSuccess)
	p.IncStoreRetry("start")
	p.SetActiveIntervals(1)
}

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewPrometheusRecorder(reg)

	p.IncTransitionResult("start", ResultSuccess)
	p.IncTransitionResult("start", ResultConflict)
	p.IncTransitionResult("pause", ResultInvalidState)
	p.ObserveTransitionDuration("start", 20*time.Millisecond)
	p.IncStoreRetry("resume")
	p.SetActiveIntervals(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	for _, name := range []string{
		"focusd_transitions_total",
		"focusd_transition_duration_seconds",
		"focusd_store_retries_total",
		"focusd_active_intervals",
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("expected metric family %s to be registered", name)
		}
	}

	if g := byName["focusd_active_intervals"].GetMetric()[0].GetGauge().GetValue(); g != 2 {
		t.Errorf("expected active gauge 2, got %v", g)
	}

	// The gauge is fed from the RUNNING count; the help text must say so.
	if h := byName["focusd_active_intervals"].GetHelp(); !strings.Contains(h, "RUNNING") || strings.Contains(h, "PAUSED") {
		t.Errorf("active gauge help text mislabels its semantics: %q", h)
	}
}
