// Package metrics holds the Prometheus collectors of the ad service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reload outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups the banner collectors.
type Metrics struct {
	registry *prometheus.Registry

	ReloadTotal    *prometheus.CounterVec
	ReloadDuration *prometheus.HistogramVec
	ClicksTotal    *prometheus.CounterVec
}

// New creates the collectors on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ReloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ads_reload_total",
				Help: "Total number of banner reloads by network and outcome",
			},
			[]string{"banner_type", "outcome", "event"},
		),
		ReloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ads_reload_duration_seconds",
				Help:    "Time from reload start to success or failure callback",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"banner_type"},
		),
		ClicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ads_clicks_total",
				Help: "Total number of banner clicks by network",
			},
			[]string{"banner_type"},
		),
	}

	reg.MustRegister(
		m.ReloadTotal,
		m.ReloadDuration,
		m.ClicksTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
