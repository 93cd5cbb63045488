package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the submission pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	submissions    *prometheus.CounterVec
	broadcasts     *prometheus.CounterVec
	rebuilds       prometheus.Counter
	busyRejections prometheus.Counter
	duration       prometheus.Histogram
}

// NewMetrics registers the collectors with registry, or with
// prometheus.DefaultRegisterer when registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txflow_submissions_total",
				Help: "Finished submissions by outcome code (ok for success)",
			},
			[]string{"code"},
		),
		broadcasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txflow_broadcasts_total",
				Help: "sendTransaction calls by status",
			},
			[]string{"status"},
		),
		rebuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "txflow_blockhash_rebuilds_total",
			Help: "Transactions rebuilt and re-signed after blockhash expiry",
		}),
		busyRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "txflow_busy_rejections_total",
			Help: "Submissions rejected because another one was in flight",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txflow_submission_duration_seconds",
			Help:    "Wall time from signing request to final outcome",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
	}
}

func (m *Metrics) recordSubmission(code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(code).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) recordBroadcast(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.broadcasts.WithLabelValues(status).Inc()
}

func (m *Metrics) recordRebuild() {
	if m == nil {
		return
	}
	m.rebuilds.Inc()
}

func (m *Metrics) recordBusy() {
	if m == nil {
		return
	}
	m.busyRejections.Inc()
}
