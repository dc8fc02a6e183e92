// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/credentials"
	"github.com/tomtom215/sentinel/internal/models"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=4096"`
}

// IssueSession issues an access and refresh token pair for a game client.
// Accounts holding a permanent ban are refused.
func (h *Handler) IssueSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := chi.URLParam(r, "accountID")
	if !validateAccountParam(w, r, accountID) {
		return
	}

	ban, err := h.engine.IsPlayerBanned(r.Context(), accountID, anticheat.BanPermanent)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	if ban != nil {
		respondError(w, r, http.StatusForbidden, ErrCodeBanned, "Account is permanently banned", nil)
		return
	}

	pair, err := h.sessions.IssueSession(r.Context(), accountID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to issue session", err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, sessionResponse(accountID, pair), start)
}

// RefreshSession rotates a refresh token.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrTokenNotFound), errors.Is(err, credentials.ErrWrongKind):
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid refresh token", nil)
		return
	default:
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid refresh token", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, sessionResponse(pair.AccountID, pair), start)
}

func sessionResponse(accountID string, p *credentials.Pair) models.SessionResponse {
	return models.SessionResponse{
		AccountID:        accountID,
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

// UpsertUser records the account's username and display name.
func (h *Handler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := chi.URLParam(r, "accountID")
	if !validateAccountParam(w, r, accountID) {
		return
	}
	var req models.UserUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.engine.UpsertUser(r.Context(), anticheat.UserUpdate{
		AccountID:   accountID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, user, start)
}
