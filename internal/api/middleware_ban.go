// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

// CheckMatchmakingBan rejects accounts holding an active matchmaking or
// permanent ban. The account id is read from the accountID route parameter.
func (h *Handler) CheckMatchmakingBan(next http.Handler) http.Handler {
	return h.banGate(anticheat.BanMatchmaking, next)
}

// CheckCompetitiveBan rejects accounts holding an active competitive ban.
// Broader bans are caught by CheckMatchmakingBan, which runs first on the
// ticket route.
func (h *Handler) CheckCompetitiveBan(next http.Handler) http.Handler {
	return h.banGate(anticheat.BanCompetitive, next)
}

func (h *Handler) banGate(scope anticheat.BanType, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountID")
		if !validateAccountParam(w, r, accountID) {
			return
		}

		var (
			ban *anticheat.Ban
			err error
		)
		if scope == anticheat.BanCompetitive {
			ban, err = h.engine.IsPlayerBanned(r.Context(), accountID, anticheat.BanCompetitive)
		} else {
			ban, err = h.engine.ActiveBanCovering(r.Context(), accountID, scope)
		}
		if err != nil {
			respondEngineError(w, r, err)
			return
		}
		if ban == nil {
			next.ServeHTTP(w, r)
			return
		}

		logging.AnticheatCtx(r.Context()).Info().
			Str("account_id", accountID).
			Str("ban_type", string(ban.Type)).
			Str("gate", string(scope)).
			Msg("Banned player rejected")

		details := map[string]interface{}{
			"ban_type": ban.Type,
			"reason":   ban.Reason,
		}
		if ban.ExpiresAt != nil {
			details["expires_at"] = ban.ExpiresAt.UTC().Format(time.RFC3339)
		}
		respondAPIError(w, r, http.StatusForbidden, &models.APIError{
			Code:    ErrCodeBanned,
			Message: "Account is banned",
			Details: details,
		})
	})
}
