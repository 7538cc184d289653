// Package metrics exposes Prometheus instruments for order admission.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Admission outcomes used as the "outcome" label.
const (
	OutcomeCommitted     = "committed"
	OutcomeValidation    = "validation"
	OutcomeInactive      = "party_inactive_or_missing"
	OutcomeFloor         = "profit_floor"
	OutcomeDuplicate     = "duplicate_business_key"
	OutcomeVersion       = "version_conflict"
	OutcomeInterrupted   = "interrupted"
	OutcomeInternalError = "internal_error"
)

// Recorder collects admission metrics. A nil *Recorder records nothing.
type Recorder struct {
	admissions *prometheus.CounterVec
	window     prometheus.Histogram
	commit     prometheus.Histogram
	inFlight   prometheus.Gauge
}

// NewRecorder registers the instruments on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_admissions_total",
			Help:      "Order creation attempts by outcome.",
		}, []string{"outcome"}),
		window: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_window_seconds",
			Help:      "Time spent in the simulated processing window.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 4, 6, 8, 10, 15},
		}),
		commit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_commit_seconds",
			Help:      "Duration of the version-checked order commit.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "admissions_in_flight",
			Help:      "Order admissions currently between admission and commit.",
		}),
	}
	reg.MustRegister(r.admissions, r.window, r.commit, r.inFlight)
	return r
}

func (r *Recorder) Admission(outcome string) {
	if r == nil {
		return
	}
	r.admissions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveWindow(d time.Duration) {
	if r == nil {
		return
	}
	r.window.Observe(d.Seconds())
}

func (r *Recorder) ObserveCommit(d time.Duration) {
	if r == nil {
		return
	}
	r.commit.Observe(d.Seconds())
}

// Enter marks an admission in flight and returns the matching exit func.
func (r *Recorder) Enter() func() {
	if r == nil {
		return func() {}
	}
	r.inFlight.Inc()
	return r.inFlight.Dec
}
