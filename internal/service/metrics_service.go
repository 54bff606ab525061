package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transition outcomes recorded by MetricsService.
const (
	OutcomeCommitted = "committed"
	OutcomeNoop      = "noop"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
)

// TargetUnknown labels transitions aimed at a status the registry does not know.
const TargetUnknown = "unknown"

// Role lookup sources recorded by MetricsService.
const (
	RoleSourceCache = "cache"
	RoleSourceStore = "store"
)

// MetricsService owns the Prometheus registry of the API: HTTP traffic,
// workflow transitions, role lookups and notification delivery.
type MetricsService struct {
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	roleLookups        *prometheus.CounterVec
	roleCacheErrors    *prometheus.CounterVec
	notifications      *prometheus.CounterVec
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

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Status transition attempts by entity, target status and outcome",
	}, []string{"entity", "to", "outcome"})

	transitionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_transition_duration_seconds",
		Help:    "Duration of status transition transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity"})

	roleLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_role_lookups_total",
		Help: "School-scoped role lookups by answering source",
	}, []string{"source"})

	roleCacheErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_role_cache_errors_total",
		Help: "Role cache failures by operation",
	}, []string{"op"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_notifications_total",
		Help: "Status change notifications by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, transitionDuration,
		roleLookups, roleCacheErrors, notifications, goroutines)

	return &MetricsService{
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		transitions:        transitions,
		transitionDuration: transitionDuration,
		roleLookups:        roleLookups,
		roleCacheErrors:    roleCacheErrors,
		notifications:      notifications,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordTransition counts a transition attempt and times its transaction.
func (m *MetricsService) RecordTransition(entity, to, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, to, outcome).Inc()
	m.transitionDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// RecordRoleLookup counts a role answer served from source.
func (m *MetricsService) RecordRoleLookup(source string) {
	if m == nil {
		return
	}
	m.roleLookups.WithLabelValues(source).Inc()
}

// RecordRoleCacheError counts a failed role cache operation (get, set, forget).
func (m *MetricsService) RecordRoleCacheError(op string) {
	if m == nil {
		return
	}
	m.roleCacheErrors.WithLabelValues(op).Inc()
}

// RecordNotification counts a delivered or failed notification.
func (m *MetricsService) RecordNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}
