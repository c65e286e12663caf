package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	runSlots        prometheus.Histogram
	runsTotal       prometheus.Counter
	uncoveredTotal  prometheus.Counter
	assignments     prometheus.Counter
	conflicts       prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	slotCount            uint64
	uncoveredCount       uint64
	assignmentCount      uint64
	conflictCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	runSlots := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "distribution_run_slots",
		Help:    "Number of slots decided per distribution run",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})

	runsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "distribution_runs_total",
		Help: "Total distribution runs executed",
	})

	uncoveredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "distribution_uncovered_slots_total",
		Help: "Total slots left uncovered across runs",
	})

	assignments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_assignments_total",
		Help: "Total substitute assignments committed",
	})

	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_assignment_conflicts_total",
		Help: "Total assignments rejected by the period lock",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runSlots, runsTotal, uncoveredTotal, assignments, conflicts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runSlots:        runSlots,
		runsTotal:       runsTotal,
		uncoveredTotal:  uncoveredTotal,
		assignments:     assignments,
		conflicts:       conflicts,
	}
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveDistributionRun records one completed run and its coverage outcome.
func (m *MetricsService) ObserveDistributionRun(decisions, uncovered int) {
	if m == nil {
		return
	}
	m.runsTotal.Inc()
	m.runSlots.Observe(float64(decisions))
	if uncovered > 0 {
		m.uncoveredTotal.Add(float64(uncovered))
	}
	atomic.AddUint64(&m.runCount, 1)
	atomic.AddUint64(&m.slotCount, uint64(decisions))
	atomic.AddUint64(&m.uncoveredCount, uint64(uncovered))
}

// IncAssignments counts a committed substitute assignment.
func (m *MetricsService) IncAssignments() {
	if m == nil {
		return
	}
	m.assignments.Inc()
	atomic.AddUint64(&m.assignmentCount, 1)
}

// IncAssignmentConflicts counts an assignment rejected by the period lock.
func (m *MetricsService) IncAssignmentConflicts() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

// Snapshot returns aggregated metrics suitable for the ops endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DistributionRuns:         atomic.LoadUint64(&m.runCount),
		SlotsPlanned:             atomic.LoadUint64(&m.slotCount),
		SlotsUncovered:           atomic.LoadUint64(&m.uncoveredCount),
		AssignmentsTotal:         atomic.LoadUint64(&m.assignmentCount),
		AssignmentConflicts:      atomic.LoadUint64(&m.conflictCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
