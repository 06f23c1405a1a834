// Package metrics holds the Prometheus collectors for admission verdicts,
// lifecycle results and the HTTP transport.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

const (
	namespace          = "fleet_provisioner"
	unknownRequestType = "unknown"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	hookVerdicts     *prometheus.CounterVec
	hookDuration     prometheus.Histogram
	lifecycleResults *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hookVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hook",
				Name:      "verdicts_total",
				Help:      "Provisioning hook verdicts by result and deny reason",
			},
			[]string{"result", "reason"},
		),
		hookDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "hook",
				Name:      "duration_seconds",
				Help:      "Time to answer a provisioning hook invocation",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
		),
		lifecycleResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "results_total",
				Help:      "Custom resource lifecycle results by request type, status and outcome",
			},
			[]string{"request_type", "status", "outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Count of all HTTP requests",
			},
			[]string{"code", "method"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "A histogram of latencies for requests.",
				Buckets:   []float64{.005, .01, .025, .05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		m.hookVerdicts,
		m.hookDuration,
		m.lifecycleResults,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveVerdict(verdict domain.AdmissionVerdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	result, reason := "allow", ""
	if !verdict.Allowed {
		result, reason = "deny", verdict.Reason
	}
	m.hookVerdicts.WithLabelValues(result, reason).Inc()
	m.hookDuration.Observe(elapsed.Seconds())
}

// ObserveLifecycle counts a lifecycle result. Request types outside the
// protocol share the "unknown" label.
func (m *Metrics) ObserveLifecycle(requestType domain.RequestType, result domain.LifecycleResult) {
	if m == nil {
		return
	}
	label := requestType.String()
	if !requestType.Valid() {
		label = unknownRequestType
	}
	m.lifecycleResults.WithLabelValues(label, string(result.Status), result.Data[domain.DataKeyStatus]).Inc()
}

// InstrumentHandler wraps next with request counting and latency tracking
// under the given route label.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	counted := promhttp.InstrumentHandlerCounter(m.httpRequests, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		counted.ServeHTTP(w, r)
		m.httpDuration.With(prometheus.Labels{"route": route, "method": r.Method}).Observe(time.Since(start).Seconds())
	})
}
