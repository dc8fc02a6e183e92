// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

const maxHistoryDays = 365

// ViolationHistory lists the account's violations, newest first. ?days
// defaults to the engine's history window.
func (h *Handler) ViolationHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := chi.URLParam(r, "accountID")
	if !validateAccountParam(w, r, accountID) {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryDays {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "days must be between 1 and 365", nil)
			return
		}
		days = n
	}

	violations, err := h.engine.GetViolationHistory(r.Context(), accountID, days)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	if violations == nil {
		violations = []anticheat.Violation{}
	}
	respondSuccess(w, r, http.StatusOK, models.ViolationHistoryResponse{
		AccountID:  accountID,
		Days:       days,
		Count:      len(violations),
		Violations: violations,
	}, start)
}

// BanStatus returns the account's active ban, optionally narrowed by ?type,
// together with its full ban history.
func (h *Handler) BanStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := chi.URLParam(r, "accountID")
	if !validateAccountParam(w, r, accountID) {
		return
	}

	banType := anticheat.BanType(r.URL.Query().Get("type"))
	if banType != "" && !banType.Valid() {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "type must be permanent, matchmaking or competitive", nil)
		return
	}

	active, err := h.engine.IsPlayerBanned(r.Context(), accountID, banType)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	history, err := h.engine.ListBans(r.Context(), accountID)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	if history == nil {
		history = []anticheat.Ban{}
	}
	respondSuccess(w, r, http.StatusOK, models.BanStatusResponse{
		AccountID: accountID,
		Banned:    active != nil,
		Active:    active,
		History:   history,
	}, start)
}

// CreateBan issues a manual ban and returns the effective ban, which is the
// existing one when an equal or broader ban is already active.
func (h *Handler) CreateBan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.BanCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	bannedBy := "moderator"
	if s := auth.SubjectFromContext(r.Context()); s != nil {
		bannedBy = s.Username
	}
	banReq := anticheat.BanRequest{
		AccountID: req.AccountID,
		Username:  req.Username,
		Type:      anticheat.BanType(req.BanType),
		Reason:    req.Reason,
		BannedBy:  bannedBy,
		Metadata:  map[string]interface{}{"automatic": false, "source": "moderation"},
	}
	if req.ExpiresInHours > 0 {
		expires := time.Now().UTC().Add(time.Duration(req.ExpiresInHours * float64(time.Hour)))
		banReq.ExpiresAt = &expires
	}

	ban, err := h.engine.BanPlayer(r.Context(), banReq)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	logging.AnticheatCtx(r.Context()).Info().
		Str("account_id", req.AccountID).
		Str("ban_type", req.BanType).
		Str("banned_by", bannedBy).
		Int64("ban_id", ban.ID).
		Msg("Manual ban requested")
	respondSuccess(w, r, http.StatusOK, ban, start)
}

// Kick closes the account's connections and revokes its credentials.
func (h *Handler) Kick(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if !validateAccountParam(w, r, accountID) {
		return
	}
	res := h.engine.KickPlayer(r.Context(), accountID)
	respondSuccess(w, r, http.StatusOK, res, time.Time{})
}

// Sweep runs one expired-ban sweep immediately.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	n, err := h.engine.CleanupExpiredBans(r.Context())
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, models.SweepResponse{Deactivated: n}, start)
}

// ClearTracking drops the account's in-memory detection state.
func (h *Handler) ClearTracking(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if !validateAccountParam(w, r, accountID) {
		return
	}
	h.engine.ClearPlayerTracking(accountID)
	w.WriteHeader(http.StatusNoContent)
}

// MatchmakingTicket issues a ticket. It sits behind the ban gates, so
// reaching it means the account may queue.
func (h *Handler) MatchmakingTicket(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, models.MatchmakingTicketResponse{
		AccountID: chi.URLParam(r, "accountID"),
		Ticket:    uuid.NewString(),
		IssuedAt:  time.Now().UTC(),
	}, time.Time{})
}
