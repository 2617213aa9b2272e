package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache results recorded by the gate.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	DocumentsSubmitted   *prometheus.CounterVec
	Reviews              *prometheus.CounterVec
	ReviewConflicts      prometheus.Counter
	GateCache            *prometheus.CounterVec
	InvalidationFailures prometheus.Counter
	OperationDuration    *prometheus.HistogramVec
}

// New registers the verification metrics with the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the verification metrics with reg. Tests pass a fresh
// registry so each test gets its own counters.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_documents_submitted_total",
			Help: "Verification documents accepted, by category",
		}, []string{"category"}),
		Reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_reviews_total",
			Help: "Completed reviews, by decision",
		}, []string{"decision"}),
		ReviewConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_review_conflicts_total",
			Help: "Reviews that lost the race to another reviewer",
		}),
		GateCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_gate_cache_total",
			Help: "Gate cache lookups, by result",
		}, []string{"result"}),
		InvalidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_gate_invalidation_failures_total",
			Help: "Gate invalidations that failed after a committed write (served stale until TTL)",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustgate_operation_duration_seconds",
			Help:    "Duration of verification operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncDocumentSubmitted(category string) {
	if m == nil {
		return
	}
	m.DocumentsSubmitted.WithLabelValues(category).Inc()
}

func (m *Metrics) IncReview(decision string) {
	if m == nil {
		return
	}
	m.Reviews.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncReviewConflict() {
	if m == nil {
		return
	}
	m.ReviewConflicts.Inc()
}

func (m *Metrics) IncGateCache(result string) {
	if m == nil {
		return
	}
	m.GateCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncInvalidationFailure() {
	if m == nil {
		return
	}
	m.InvalidationFailures.Inc()
}

// ObserveOperation records the duration of operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
