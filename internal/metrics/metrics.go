// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具
//
// Package metrics exposes conversion counters for the status endpoint.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion results
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds the collectors of one registry
type Metrics struct {
	registry *prometheus.Registry

	ConversionsTotal    *prometheus.CounterVec
	ConversionDuration  prometheus.Histogram
	ConversionsInFlight prometheus.Gauge
	ProbeTotal          *prometheus.CounterVec
}

// New registers the conversion metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmvbconv_conversions_total",
				Help: "Total number of conversions by result",
			},
			[]string{"result"},
		),

		ConversionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rmvbconv_conversion_duration_seconds",
				Help:    "Wall time of finished ffmpeg runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400, 3600},
			},
		),

		ConversionsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rmvbconv_conversions_in_flight",
				Help: "Number of ffmpeg processes currently running",
			},
		),

		ProbeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmvbconv_probe_total",
				Help: "Total number of duration probes by status",
			},
			[]string{"status"}, // "ok", "unknown"
		),
	}
}

// Registry returns the registry the collectors live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
