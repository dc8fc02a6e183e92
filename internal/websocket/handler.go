// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentinel/internal/credentials"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/validation"
)

// TokenAuthenticator verifies game client access tokens.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string, kind credentials.Kind) (*credentials.Claims, error)
}

// Handler upgrades authenticated game clients and registers them with the hub.
type Handler struct {
	hub            *Hub
	auth           TokenAuthenticator
	allowedOrigins []string
}

// NewHandler creates the websocket endpoint.
func NewHandler(hub *Hub, auth TokenAuthenticator, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, auth: auth, allowedOrigins: allowedOrigins}
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin accepts native game clients, which send no Origin header, and
// browser clients from an allowed origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP authenticates the token, validates the display name and upgrades.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.hub.Running() {
		http.Error(w, "websocket service unavailable", http.StatusServiceUnavailable)
		return
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing access token", http.StatusUnauthorized)
		return
	}
	claims, err := h.auth.Authenticate(r.Context(), token, credentials.KindAccess)
	if err != nil {
		logging.Debug().Err(err).Msg("websocket authentication failed")
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}

	name := r.URL.Query().Get("name")
	if err := validation.GetValidator().Var(name, "required,player_name"); err != nil {
		http.Error(w, "invalid display name", http.StatusBadRequest)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Str("account_id", claims.AccountID).Msg("websocket upgrade error")
		return
	}

	client := NewClient(h.hub, conn, claims.AccountID, name)
	h.hub.Register(client)
	client.Start()
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func sanitizeLogValue(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
