// Package metrics holds the Prometheus collectors for the budget client
// and the local emulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "simplebudget"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	reloads      *prometheus.CounterVec
	staleReloads prometheus.Counter
	mutations    *prometheus.CounterVec
	httpServed   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Budget API requests by status code and method.",
		}, []string{"code", "method"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Budget API round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reloads_total",
			Help:      "Month reloads by mode (full or silent) and outcome.",
		}, []string{"mode", "outcome"}),
		staleReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_reloads_discarded_total",
			Help:      "Reload responses dropped because the scope changed or a newer reload was applied.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "mutations_total",
			Help:      "Session commands by operation and outcome.",
		}, []string{"operation", "outcome"}),
		httpServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emulator",
			Name:      "http_requests_total",
			Help:      "Requests served by the emulator.",
		}, []string{"code", "method"}),
	}
	reg.MustRegister(m.apiRequests, m.apiDuration, m.reloads, m.staleReloads, m.mutations, m.httpServed)
	return m
}

// InstrumentTransport wraps rt so every API round trip is counted and timed.
func (m *Metrics) InstrumentTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if m == nil {
		return rt
	}
	return promhttp.InstrumentRoundTripperCounter(m.apiRequests,
		promhttp.InstrumentRoundTripperDuration(m.apiDuration, rt))
}

// InstrumentHandler counts requests served by h.
func (m *Metrics) InstrumentHandler(h http.Handler) http.Handler {
	if m == nil {
		return h
	}
	return promhttp.InstrumentHandlerCounter(m.httpServed, h)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

func (m *Metrics) ReloadApplied(silent bool) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(mode(silent), "applied").Inc()
}

func (m *Metrics) ReloadFailed(silent bool) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(mode(silent), "failed").Inc()
}

func (m *Metrics) ReloadDiscarded() {
	if m == nil {
		return
	}
	m.staleReloads.Inc()
}

func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

func mode(silent bool) string {
	if silent {
		return "silent"
	}
	return "full"
}
