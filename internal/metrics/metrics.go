package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// MonitorCycles counts completed monitoring cycles.
	MonitorCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "monitor_cycles_total", Help: "Completed monitoring cycles."},
	)
	// MonitorCycleDuration tracks full-cycle wall time in seconds.
	MonitorCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "monitor_cycle_duration_seconds", Help: "Monitoring cycle duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60}},
	)

	// AlertsRaised counts alerts created or refreshed, by type and whether new.
	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_raised_total", Help: "Alerts created or refreshed by type."},
		[]string{"type", "new"},
	)
	// AlertsResolved counts alerts marked read by the monitor, by type.
	AlertsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_resolved_total", Help: "Alerts auto-resolved by type."},
		[]string{"type"},
	)

	// SolverFallbacks counts route sequencing runs that fell back to the local
	// nearest-neighbor heuristic.
	SolverFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "route_solver_fallbacks_total", Help: "Sequencing runs that fell back to nearest-neighbor."},
	)
	// SchedulesAutoCreated counts schedules created by the auto-scheduler.
	SchedulesAutoCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "schedules_auto_created_total", Help: "Schedules created by the auto-scheduler."},
	)

	// NotifyDeliveries counts webhook delivery outcomes by status.
	NotifyDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notify_deliveries_total", Help: "Webhook deliveries by status."},
		[]string{"status"},
	)
	// NotifyLatency tracks webhook delivery latencies in milliseconds.
	NotifyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "notify_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(MonitorCycles)
		Registry.MustRegister(MonitorCycleDuration)
		Registry.MustRegister(AlertsRaised)
		Registry.MustRegister(AlertsResolved)
		Registry.MustRegister(SolverFallbacks)
		Registry.MustRegister(SchedulesAutoCreated)
		Registry.MustRegister(NotifyDeliveries)
		Registry.MustRegister(NotifyLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
