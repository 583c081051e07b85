// Package metrics records Prometheus metrics for calls to the analysis
// service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as label values.
const (
	OpAnalyze = "analyze"
	OpExtract = "extract"
	OpReport  = "report"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder groups the collectors. A nil *Recorder records nothing.
type Recorder struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	deferred prometheus.Counter
	batch    prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		calls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "induspect_analysis_calls_total",
				Help: "Calls made to the analysis service",
			},
			[]string{"operation", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "induspect_analysis_duration_seconds",
				Help:    "Duration of calls to the analysis service",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation"},
		),
		deferred: f.NewCounter(prometheus.CounterOpts{
			Name: "induspect_dispatch_deferred_total",
			Help: "Analysis dispatches skipped because the device was offline",
		}),
		batch: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "induspect_batch_size",
			Help:    "Items dispatched per analysis batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
}

// Call records one finished call.
func (r *Recorder) Call(op string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	r.calls.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Deferred records a dispatch skipped while offline.
func (r *Recorder) Deferred() {
	if r == nil {
		return
	}
	r.deferred.Inc()
}

// Batch records the size of a dispatched batch.
func (r *Recorder) Batch(n int) {
	if r == nil {
		return
	}
	r.batch.Observe(float64(n))
}
