package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Admission(OutcomeCommitted)
	r.Admission(OutcomeCommitted)
	r.Admission(OutcomeDuplicate)
	r.ObserveWindow(2 * time.Second)
	r.ObserveCommit(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.admissions.WithLabelValues(OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.admissions.WithLabelValues(OutcomeDuplicate)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.window))
}

func TestRecorder_InFlightGauge(t *testing.T) {
	t.Parallel()

	r := NewRecorder(prometheus.NewRegistry())
	exitA := r.Enter()
	exitB := r.Enter()
	assert.Equal(t, 2.0, testutil.ToFloat64(r.inFlight))
	exitA()
	exitB()
	assert.Equal(t, 0.0, testutil.ToFloat64(r.inFlight))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.Admission(OutcomeCommitted)
	r.ObserveWindow(time.Second)
	r.ObserveCommit(time.Second)
	r.Enter()()
}
