// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "inkpost"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requestDurations *prometheus.SummaryVec
	assetBytes       *prometheus.CounterVec
	assetOps         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDurations: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  Namespace,
				Name:       "requests_duration_seconds",
				Help:       "Time spent answering HTTP requests in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"method", "route", "status"},
		),
		assetBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "asset_bytes_written_total",
				Help:      "Total volume of uploaded asset data written in bytes.",
			},
			[]string{"kind"},
		),
		assetOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "asset_operations_total",
				Help:      "Asset store, replace and discard operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
	}

	m.registry.MustRegister(m.requestDurations, m.assetBytes, m.assetOps)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// AssetWritten counts n bytes written for an asset of the given kind.
func (m *Metrics) AssetWritten(kind string, n int64) {
	m.assetBytes.WithLabelValues(kind).Add(float64(n))
}

// AssetOp counts an asset operation with its outcome ("ok", "error", "missing").
func (m *Metrics) AssetOp(operation, outcome string) {
	m.assetOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
