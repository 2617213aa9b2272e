package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	published     prometheus.Counter
	batchFailures prometheus.Counter
	batchDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		published: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_outbox_published_total",
			Help: "Outbox entries produced to Kafka",
		}),
		batchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_outbox_batch_failures_total",
			Help: "Outbox batches left unpublished after a failure",
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustgate_outbox_batch_duration_seconds",
			Help:    "Time to claim, produce and mark one outbox batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m == nil || n == 0 {
		return
	}
	m.published.Add(float64(n))
}

func (m *Metrics) IncBatchFailures() {
	if m == nil {
		return
	}
	m.batchFailures.Inc()
}

func (m *Metrics) ObserveBatchDuration(seconds float64) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(seconds)
}
