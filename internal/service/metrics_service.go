package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// the candidate cache and the assignment engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	assignments     *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	cancellations   *prometheus.CounterVec
	reviews         *prometheus.CounterVec
	lockWait        prometheus.Histogram
	indexSize       prometheus.Gauge
	rebuildDuration prometheus.Histogram
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "candidate_cache_lookups_total",
		Help: "Candidate cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "candidate_cache_latency_seconds",
		Help:    "Latency for candidate cache operations",
		Buckets: prometheus.DefBuckets,
	})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_assignments_total",
		Help: "Committed assignments by kind (new or reassigned)",
	}, []string{"kind"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_assignment_rejections_total",
		Help: "Commits refused at validation time by reason",
	}, []string{"reason"})

	cancellations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_cancellations_total",
		Help: "Cancellation requests by outcome",
	}, []string{"outcome"})

	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_shift_reviews_total",
		Help: "Shift request review outcomes per id",
	}, []string{"outcome"})

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_lock_wait_seconds",
		Help:    "Time spent acquiring resource-day locks",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})

	indexSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduling_conflict_index_intervals",
		Help: "Intervals currently held by the conflict index",
	})

	rebuildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_index_rebuild_seconds",
		Help:    "Duration of conflict index rebuilds",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, assignments, conflicts,
		cancellations, reviews, lockWait, indexSize, rebuildDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheLatency:    cacheLatency,
		assignments:     assignments,
		conflicts:       conflicts,
		cancellations:   cancellations,
		reviews:         reviews,
		lockWait:        lockWait,
		indexSize:       indexSize,
		rebuildDuration: rebuildDuration,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordAssignment counts a committed assignment.
func (m *MetricsService) RecordAssignment(reassigned bool) {
	if m == nil {
		return
	}
	kind := "new"
	if reassigned {
		kind = "reassigned"
	}
	m.assignments.WithLabelValues(kind).Inc()
}

// RecordAssignmentRejected counts a commit refused for reason.
func (m *MetricsService) RecordAssignmentRejected(reason string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(reason).Inc()
}

// RecordCancellation counts a cancellation outcome.
func (m *MetricsService) RecordCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(outcome).Inc()
}

// RecordReview adds n per-id review outcomes.
func (m *MetricsService) RecordReview(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reviews.WithLabelValues(outcome).Add(float64(n))
}

// ObserveLockWait records time spent waiting for resource-day locks.
func (m *MetricsService) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(duration.Seconds())
}

// SetIndexSize publishes the conflict index size.
func (m *MetricsService) SetIndexSize(n int) {
	if m == nil {
		return
	}
	m.indexSize.Set(float64(n))
}

// ObserveRebuild records an index rebuild duration.
func (m *MetricsService) ObserveRebuild(duration time.Duration) {
	if m == nil {
		return
	}
	m.rebuildDuration.Observe(duration.Seconds())
}
