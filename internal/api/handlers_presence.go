// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/validation"
)

// Presence response bodies. Game servers match on these strings.
const (
	presenceVerified  = "Player verified"
	presenceNotOnline = "Player is not online"
	presenceNotFound  = "Player not found"
)

// PresenceCheck answers whether a player is connected to the backend right
// now. A bad key gets an empty 403. A malformed username is reported as not
// found, so the response never explains what was wrong with it. A backend
// failure is logged and answered as not online.
func (h *Handler) PresenceCheck(w http.ResponseWriter, r *http.Request) {
	if !h.apiKey.Valid(chi.URLParam(r, "apikey")) {
		logging.Ctx(r.Context()).Warn().
			Str("remote_addr", r.RemoteAddr).
			Msg("Presence check with invalid API key")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	username := chi.URLParam(r, "username")
	if err := validation.GetValidator().Var(username, "required,player_name"); err != nil {
		writeText(w, http.StatusOK, presenceNotFound)
		return
	}

	result, err := h.engine.VerifyPresence(r.Context(), username)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("username", sanitizeLogValue(username)).
			Msg("Presence check failed")
		writeText(w, http.StatusOK, presenceNotOnline)
		return
	}

	switch result.Status {
	case anticheat.PresenceVerified:
		writeText(w, http.StatusOK, presenceVerified)
	case anticheat.PresenceNotFound:
		writeText(w, http.StatusOK, presenceNotFound)
	default:
		writeText(w, http.StatusOK, presenceNotOnline)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		logging.Error().Err(err).Msg("Failed to write text response")
	}
}
