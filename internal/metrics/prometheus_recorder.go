package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	transitionDuration *prom.HistogramVec
	transitionResults  *prom.CounterVec
	storeRetries       *prom.CounterVec
	activeIntervals    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.transitionDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "focusd",
			Name:      "transition_duration_seconds",
			Help:      "Duration of interval transition operations",
			Buckets:   prom.DefBuckets,
		}, []string{"action"})
		pr.transitionResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "focusd",
			Name:      "transitions_total",
			Help:      "Transition attempts by action and outcome",
		}, []string{"action", "result"})
		pr.storeRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "focusd",
			Name:      "store_retries_total",
			Help:      "Store serialization conflicts retried, by action",
		}, []string{"action"})
		pr.activeIntervals = prom.NewGauge(prom.GaugeOpts{
			Namespace: "focusd",
			Name:      "active_intervals",
			Help:      "Intervals currently RUNNING across all owners",
		})
		reg.MustRegister(pr.transitionDuration, pr.transitionResults, pr.storeRetries, pr.activeIntervals)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveTransitionDuration(action string, d time.Duration) {
	if p == nil || p.transitionDuration == nil {
		return
	}
	p.transitionDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTransitionResult(action string, result ResultLabel) {
	if p == nil || p.transitionResults == nil {
		return
	}
	p.transitionResults.WithLabelValues(action, string(result)).Inc()
}

func (p *PrometheusRecorder) IncStoreRetry(action string) {
	if p == nil || p.storeRetries == nil {
		return
	}
	p.storeRetries.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) SetActiveIntervals(n int) {
	if p == nil || p.activeIntervals == nil {
		return
	}
	p.activeIntervals.Set(float64(n))
}
