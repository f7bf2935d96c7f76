// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRoutes(t *testing.T) {
	h := NewHealthHandler(t.TempDir(), "aria2c")
	h.lookPath = func(string) (string, error) { return "/usr/bin/aria2c", nil }

	r := chi.NewRouter()
	r.Route("/health", h.Routes)

	rr := get(t, r, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = get(t, r, "/health/liveness")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, r, "/health/readiness")
	require.Equal(t, http.StatusOK, rr.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Checks["storage"].Status)
	assert.Equal(t, "ok", health.Checks["download_agent"].Status)
}

func TestReadinessFailsWithoutAgentOrStorage(t *testing.T) {
	h := NewHealthHandler(filepath.Join(t.TempDir(), "missing"), "aria2c")
	h.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	r := chi.NewRouter()
	r.Route("/health", h.Routes)

	rr := get(t, r, "/health/readiness")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "fail", health.Status)
	assert.Equal(t, "fail", health.Checks["storage"].Status)
	assert.Equal(t, "fail", health.Checks["download_agent"].Status)
}
