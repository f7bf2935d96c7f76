// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/go-chi/chi/v5"
)

type HealthHandler struct {
	storageDir     string
	downloadBinary string
	lookPath       func(string) (string, error)
}

func NewHealthHandler(storageDir, downloadBinary string) *HealthHandler {
	return &HealthHandler{
		storageDir:     storageDir,
		downloadBinary: downloadBinary,
		lookPath:       exec.LookPath,
	}
}

func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleHealth)
	r.Get("/readiness", h.HandleReady)
	r.Get("/liveness", h.HandleLiveness)
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady reports whether files can be stored and downloads started.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	health := h.checkOverallHealth()

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	RespondJSON(w, status, health)
}

func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) checkOverallHealth() HealthResponse {
	checks := make(map[string]CheckResult)
	overallStatus := "ok"

	if info, err := os.Stat(h.storageDir); err != nil {
		checks["storage"] = CheckResult{Status: "fail", Error: err.Error()}
		overallStatus = "fail"
	} else if !info.IsDir() {
		checks["storage"] = CheckResult{Status: "fail", Error: "not a directory"}
		overallStatus = "fail"
	} else if err := probeWritable(h.storageDir); err != nil {
		checks["storage"] = CheckResult{Status: "fail", Error: err.Error()}
		overallStatus = "fail"
	} else {
		checks["storage"] = CheckResult{Status: "ok"}
	}

	if _, err := h.lookPath(h.downloadBinary); err != nil {
		checks["download_agent"] = CheckResult{Status: "fail", Error: err.Error()}
		overallStatus = "fail"
	} else {
		checks["download_agent"] = CheckResult{Status: "ok"}
	}

	return HealthResponse{
		Status:    overallStatus,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	}
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".rossoflix-ready-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
