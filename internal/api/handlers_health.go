// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}, time.Time{})
}

// HealthReady runs every readiness check and answers 503 if any fails.
// Failure reasons are logged, not returned.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := models.HealthResponse{
		Status:     "ready",
		Components: make(map[string]string, len(names)),
		Uptime:     time.Since(h.startTime).Seconds(),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("component", name).Msg("Readiness check failed")
			resp.Components[name] = "unavailable"
			resp.Status = "not_ready"
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, status, resp, time.Time{})
}
