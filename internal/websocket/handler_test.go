// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentinel/internal/credentials"
)

// mockAuthenticator maps tokens to account ids.
type mockAuthenticator struct {
	tokens map[string]string
}

func (m *mockAuthenticator) Authenticate(_ context.Context, token string, kind credentials.Kind) (*credentials.Claims, error) {
	if kind != credentials.KindAccess {
		return nil, credentials.ErrWrongKind
	}
	accountID, ok := m.tokens[token]
	if !ok {
		return nil, credentials.ErrTokenNotFound
	}
	return &credentials.Claims{AccountID: accountID, Kind: kind}, nil
}

func setupServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()
	t.Cleanup(cancel)
	waitFor(t, hub.Running)

	auth := &mockAuthenticator{tokens: map[string]string{"good-token": "acc-1"}}
	srv := httptest.NewServer(NewHandler(hub, auth, []string{"https://game.example.com"}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, query url.Values) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query.Encode()
}

func dial(t *testing.T, srv *httptest.Server, query url.Values, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, query), header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return msg
}

func TestHandler_RejectsHandshake(t *testing.T) {
	_, srv := setupServer(t)

	tests := []struct {
		name   string
		query  url.Values
		header http.Header
		status int
	}{
		{"no token", url.Values{"name": {"PlayerOne"}}, nil, http.StatusUnauthorized},
		{"unknown token", url.Values{"name": {"PlayerOne"}, "token": {"bad"}}, nil, http.StatusUnauthorized},
		{"non bearer header", url.Values{"name": {"PlayerOne"}}, http.Header{"Authorization": {"Basic abc"}}, http.StatusUnauthorized},
		{"missing name", url.Values{"token": {"good-token"}}, nil, http.StatusBadRequest},
		{"control characters in name", url.Values{"token": {"good-token"}, "name": {"bad\x01name"}}, nil, http.StatusBadRequest},
		{"foreign origin", url.Values{"token": {"good-token"}, "name": {"PlayerOne"}}, http.Header{"Origin": {"https://evil.example.com"}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dial(t, srv, tt.query, tt.header)
			if err == nil {
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("response = %v, want status %d", resp, tt.status)
			}
		})
	}
}

func TestHandler_ConnectAndKick(t *testing.T) {
	hub, srv := setupServer(t)

	header := http.Header{"Authorization": {"Bearer good-token"}}
	conn, _, err := dial(t, srv, url.Values{"name": {"PlayerOne"}}, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	if msg := readMessage(t, conn); msg.Type != MessageTypeWelcome {
		t.Fatalf("first message = %+v, want welcome", msg)
	}
	if !hub.IsOnline("acc-1", "PlayerOne") {
		t.Fatal("client should be online after welcome")
	}

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Fatalf("reply = %+v, want pong", msg)
	}

	if n := hub.CloseAccount("acc-1"); n != 1 {
		t.Fatalf("CloseAccount = %d, want 1", n)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypeKicked {
		t.Fatalf("message = %+v, want kicked", msg)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("read after kick = %v, want policy violation close", err)
	}
	if hub.IsOnline("acc-1", "PlayerOne") {
		t.Error("kicked client still online")
	}
}

func TestHandler_TokenQueryAndAllowedOrigin(t *testing.T) {
	hub, srv := setupServer(t)

	header := http.Header{"Origin": {"https://game.example.com"}}
	conn, _, err := dial(t, srv, url.Values{"name": {"PlayerOne"}, "token": {"good-token"}}, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	readMessage(t, conn)

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHandler_HubNotRunning(t *testing.T) {
	hub := NewHub()
	h := NewHandler(hub, &mockAuthenticator{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"header", "/ws", "Bearer abc", "abc"},
		{"query", "/ws?token=xyz", "", "xyz"},
		{"header wins", "/ws?token=xyz", "Bearer abc", "abc"},
		{"wrong scheme", "/ws?token=xyz", "Basic abc", ""},
		{"none", "/ws", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(r); got != tt.want {
				t.Errorf("bearerToken = %q, want %q", got, tt.want)
			}
		})
	}
}
