package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts orchestrator activity. Outcome is one of
// accepted, failed or skipped.
type Metrics struct {
	Batches          prometheus.Counter
	Submissions      *prometheus.CounterVec
	EndpointFailures prometheus.Counter
	BatchDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "transcode_trigger",
			Name:      "batches_total",
			Help:      "Trigger batches handled.",
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transcode_trigger",
			Name:      "submissions_total",
			Help:      "Per-object submission outcomes.",
		}, []string{"outcome"}),
		EndpointFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "transcode_trigger",
			Name:      "endpoint_failures_total",
			Help:      "Batches aborted because the endpoint could not be resolved.",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "transcode_trigger",
			Name:      "batch_duration_seconds",
			Help:      "Time from trigger to the last submission acknowledgement.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
