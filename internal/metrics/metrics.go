// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/internal/acquisition"
)

const namespace = "rossoflix"

type MetricsManager struct {
	registry *prometheus.Registry

	acquisitions        *prometheus.CounterVec
	acquisitionsRunning prometheus.Gauge
	acquisitionDuration prometheus.Histogram
	streamRequests      *prometheus.CounterVec
	streamBytes         prometheus.Counter
	cacheRequests       *prometheus.CounterVec
	upstreamRequests    *prometheus.CounterVec
}

func NewMetricsManager() *MetricsManager {
	registry := prometheus.NewRegistry()

	// Register standard Go collectors like autobrr does
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &MetricsManager{
		registry: registry,
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Download agent runs by outcome.",
		}, []string{"outcome"}),
		acquisitionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "acquisitions_in_flight",
			Help:      "Download agent runs currently in progress.",
		}),
		acquisitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquisition_duration_seconds",
			Help:      "Wall time of download agent runs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600, 7200},
		}),
		streamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_requests_total",
			Help:      "Stream requests by response status.",
		}, []string{"status"}),
		streamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_bytes_total",
			Help:      "Body bytes written by stream responses.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Metadata upstream requests by upstream and result.",
		}, []string{"upstream", "result"}),
	}

	registry.MustRegister(
		m.acquisitions,
		m.acquisitionsRunning,
		m.acquisitionDuration,
		m.streamRequests,
		m.streamBytes,
		m.cacheRequests,
		m.upstreamRequests,
	)

	log.Info().Msg("Metrics manager initialized with collectors")

	return m
}

func (m *MetricsManager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// The recorder methods below are nil-safe so callers can run without metrics.

func (m *MetricsManager) AcquisitionStarted() {
	if m == nil {
		return
	}
	m.acquisitionsRunning.Inc()
}

func (m *MetricsManager) AcquisitionFinished(outcome acquisition.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.acquisitionsRunning.Dec()
	m.acquisitions.WithLabelValues(string(outcome)).Inc()
	m.acquisitionDuration.Observe(elapsed.Seconds())
}

func (m *MetricsManager) StreamServed(status int, written int64) {
	if m == nil {
		return
	}
	m.streamRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	if written > 0 {
		m.streamBytes.Add(float64(written))
	}
}

func (m *MetricsManager) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

func (m *MetricsManager) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

func (m *MetricsManager) UpstreamRequest(upstream string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.upstreamRequests.WithLabelValues(upstream, result).Inc()
}
