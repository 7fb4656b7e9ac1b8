// Package metrics exposes Prometheus collectors for tenant resolution,
// access decisions and the invitation workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xamu"

// Metrics owns a registry so tests can build isolated instances.
type Metrics struct {
	reg *prometheus.Registry

	tenantLookups   *prometheus.CounterVec
	accessDecisions *prometheus.CounterVec
	invitations     *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		tenantLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "lookups_total",
			Help:      "Tenant lookups by outcome (hit, loaded, not_found, invalid, error).",
		}, []string{"result"}),
		accessDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Access guard decisions by reason.",
		}, []string{"allowed", "reason"}),
		invitations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invitation",
			Name:      "operations_total",
			Help:      "Invitation operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// TenantLookup counts one lookup outcome.
func (m *Metrics) TenantLookup(result string) {
	m.tenantLookups.WithLabelValues(result).Inc()
}

// AccessDecision counts one guard decision.
func (m *Metrics) AccessDecision(allowed bool, reason string) {
	m.accessDecisions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

// Invitation counts one invitation operation. outcome is "ok" or an error code.
func (m *Metrics) Invitation(operation, outcome string) {
	m.invitations.WithLabelValues(operation, outcome).Inc()
}

// Middleware records request latency labelled by chi route pattern, so
// tenant codes never become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
