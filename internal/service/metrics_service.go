package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reset code delivery outcomes recorded by RecordResetCodeIssued.
const (
	DeliveryMailed   = "mailed"
	DeliveryOnScreen = "on_screen"
	DeliveryFailed   = "failed"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are safe
// on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	rostersMaterialized    prometheus.Counter
	attendanceRowsCreated  prometheus.Counter
	attendanceChanges      prometheus.Counter
	attendanceSaveFailures prometheus.Counter
	scheduleLookupFailures prometheus.Counter
	resetCodesIssued       *prometheus.CounterVec
	resetCodeRejections    prometheus.Counter
}

// NewMetricsService registers the HTTP and attendance collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		rostersMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_rosters_materialized_total",
			Help: "Rosters created for a class and date",
		}),
		attendanceRowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_records_created_total",
			Help: "Default attendance records inserted",
		}),
		attendanceChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_status_changes_total",
			Help: "Attendance records whose status changed",
		}),
		attendanceSaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_save_failures_total",
			Help: "Attendance batches that failed to persist",
		}),
		scheduleLookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedule_lookup_failures_total",
			Help: "Timetable reads that failed and degraded to no active session",
		}),
		resetCodesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reset_codes_issued_total",
			Help: "Password reset codes issued by delivery outcome",
		}, []string{"delivery"}),
		resetCodeRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reset_code_rejections_total",
			Help: "Reset code checks that failed",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.rostersMaterialized, m.attendanceRowsCreated, m.attendanceChanges, m.attendanceSaveFailures,
		m.scheduleLookupFailures, m.resetCodesIssued, m.resetCodeRejections, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordRosterMaterialized counts a newly created roster and its rows.
func (m *MetricsService) RecordRosterMaterialized(rows int) {
	if m == nil {
		return
	}
	m.rostersMaterialized.Inc()
	m.attendanceRowsCreated.Add(float64(rows))
}

// RecordAttendanceChanges counts reconciled status changes.
func (m *MetricsService) RecordAttendanceChanges(changed int) {
	if m == nil || changed <= 0 {
		return
	}
	m.attendanceChanges.Add(float64(changed))
}

// RecordAttendanceSaveFailure counts a discarded batch.
func (m *MetricsService) RecordAttendanceSaveFailure() {
	if m == nil {
		return
	}
	m.attendanceSaveFailures.Inc()
}

// RecordScheduleLookupFailure counts a swallowed timetable read error.
func (m *MetricsService) RecordScheduleLookupFailure() {
	if m == nil {
		return
	}
	m.scheduleLookupFailures.Inc()
}

// RecordResetCodeIssued counts an issued code by delivery outcome.
func (m *MetricsService) RecordResetCodeIssued(delivery string) {
	if m == nil {
		return
	}
	m.resetCodesIssued.WithLabelValues(delivery).Inc()
}

// RecordResetCodeRejected counts a failed code check.
func (m *MetricsService) RecordResetCodeRejected() {
	if m == nil {
		return
	}
	m.resetCodeRejections.Inc()
}
