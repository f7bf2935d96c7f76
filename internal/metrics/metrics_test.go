// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossoflix/rossoflix/internal/acquisition"
)

func TestNewMetricsManager(t *testing.T) {
	manager := NewMetricsManager()

	assert.NotNil(t, manager)
	assert.IsType(t, &prometheus.Registry{}, manager.GetRegistry())
}

func TestManager_RegistryIsolation(t *testing.T) {
	manager1 := NewMetricsManager()
	manager2 := NewMetricsManager()

	assert.NotSame(t, manager1.registry, manager2.registry, "Each manager should have its own registry")

	manager1.CacheHit()
	assert.Equal(t, float64(1), testutil.ToFloat64(manager1.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, float64(0), testutil.ToFloat64(manager2.cacheRequests.WithLabelValues("hit")))
}

func TestManager_AcquisitionMetrics(t *testing.T) {
	manager := NewMetricsManager()

	manager.AcquisitionStarted()
	manager.AcquisitionStarted()
	assert.Equal(t, float64(2), testutil.ToFloat64(manager.acquisitionsRunning))

	manager.AcquisitionFinished(acquisition.OutcomeSuccess, 3*time.Second)
	manager.AcquisitionFinished(acquisition.OutcomeTimeout, time.Hour)

	assert.Equal(t, float64(0), testutil.ToFloat64(manager.acquisitionsRunning))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.acquisitions.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.acquisitions.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(manager.acquisitionDuration))
}

func TestManager_StreamAndUpstreamMetrics(t *testing.T) {
	manager := NewMetricsManager()

	manager.StreamServed(http.StatusPartialContent, 100)
	manager.StreamServed(http.StatusPartialContent, 50)
	manager.StreamServed(http.StatusBadRequest, 0)
	manager.UpstreamRequest("omdb", nil)
	manager.UpstreamRequest("omdb", errors.New("boom"))
	manager.CacheMiss()

	assert.Equal(t, float64(2), testutil.ToFloat64(manager.streamRequests.WithLabelValues("206")))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.streamRequests.WithLabelValues("400")))
	assert.Equal(t, float64(150), testutil.ToFloat64(manager.streamBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.upstreamRequests.WithLabelValues("omdb", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.upstreamRequests.WithLabelValues("omdb", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.cacheRequests.WithLabelValues("miss")))
}

func TestManager_NilIsSafe(t *testing.T) {
	var manager *MetricsManager

	assert.NotPanics(t, func() {
		manager.AcquisitionStarted()
		manager.AcquisitionFinished(acquisition.OutcomeFailure, time.Second)
		manager.StreamServed(http.StatusOK, 10)
		manager.CacheHit()
		manager.CacheMiss()
		manager.UpstreamRequest("torrentio", nil)
	})
}

func TestManager_MetricsCanBeScraped(t *testing.T) {
	manager := NewMetricsManager()
	manager.StreamServed(http.StatusOK, 1)

	server := NewMetricsServer(manager, "127.0.0.1", 9074, "")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "rossoflix_stream_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestServer_BasicAuth(t *testing.T) {
	server := NewMetricsServer(NewMetricsManager(), "127.0.0.1", 9074, "prom:secret, broken ,other:pw")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseBasicAuthUsers(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, ParseBasicAuthUsers("a:1, b:2"))
	assert.Empty(t, ParseBasicAuthUsers(""))
	assert.Empty(t, ParseBasicAuthUsers("nocolon,:empty,x:y:z"))
}
