// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/credentials"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/telemetry"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

const (
	testAPIKey       = "test-presence-key"
	testModUser      = "mod"
	testModPassword  = "moderator-password"
	testAdminUser    = "root"
	testAdminPasswd  = "administrator-password"
	testAccount      = "acc-1"
	testPlayerName   = "PlayerOne"
	testRefreshToken = "refresh-token"
)

// mockEngine serves canned results and records calls.
type mockEngine struct {
	mu sync.Mutex

	presence    anticheat.PresenceResult
	presenceErr error

	// bans maps account id to the ban returned by both lookups, keyed by
	// the scope it covers.
	bans    map[string]*anticheat.Ban
	banErr  error
	history []anticheat.Ban

	violations   []anticheat.Violation
	historyDays  int
	banRequests  []anticheat.BanRequest
	kicked       []string
	cleared      []string
	swept        int64
	users        []anticheat.UserUpdate
	upsertErr    error
	violationErr error
}

func (m *mockEngine) VerifyPresence(_ context.Context, _ string) (anticheat.PresenceResult, error) {
	return m.presence, m.presenceErr
}

func (m *mockEngine) lookup(accountID string, match func(anticheat.BanType) bool) (*anticheat.Ban, error) {
	if m.banErr != nil {
		return nil, m.banErr
	}
	if b, ok := m.bans[accountID]; ok && match(b.Type) {
		return b, nil
	}
	return nil, nil
}

func (m *mockEngine) ActiveBanCovering(_ context.Context, accountID string, scope anticheat.BanType) (*anticheat.Ban, error) {
	return m.lookup(accountID, func(t anticheat.BanType) bool {
		return t == anticheat.BanPermanent || t == scope
	})
}

func (m *mockEngine) IsPlayerBanned(_ context.Context, accountID string, banType anticheat.BanType) (*anticheat.Ban, error) {
	return m.lookup(accountID, func(t anticheat.BanType) bool {
		return banType == "" || t == banType
	})
}

func (m *mockEngine) ListBans(_ context.Context, _ string) ([]anticheat.Ban, error) {
	return m.history, m.banErr
}

func (m *mockEngine) BanPlayer(_ context.Context, req anticheat.BanRequest) (*anticheat.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.banErr != nil {
		return nil, m.banErr
	}
	m.banRequests = append(m.banRequests, req)
	return &anticheat.Ban{
		ID:        int64(len(m.banRequests)),
		AccountID: req.AccountID,
		Username:  req.Username,
		Type:      req.Type,
		Reason:    req.Reason,
		BannedBy:  req.BannedBy,
		ExpiresAt: req.ExpiresAt,
		IsActive:  true,
	}, nil
}

func (m *mockEngine) KickPlayer(_ context.Context, accountID string) anticheat.KickResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kicked = append(m.kicked, accountID)
	return anticheat.KickResult{Connections: 1, Credentials: 2, Complete: true}
}

func (m *mockEngine) CleanupExpiredBans(_ context.Context) (int64, error) {
	return m.swept, m.banErr
}

func (m *mockEngine) GetViolationHistory(_ context.Context, _ string, days int) ([]anticheat.Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyDays = days
	return m.violations, m.violationErr
}

func (m *mockEngine) ClearPlayerTracking(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, accountID)
}

func (m *mockEngine) UpsertUser(_ context.Context, u anticheat.UserUpdate) (*anticheat.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.users = append(m.users, u)
	return &anticheat.User{AccountID: u.AccountID, Username: u.Username, DisplayName: u.DisplayName}, nil
}

// mockSessions issues fixed tokens.
type mockSessions struct {
	issued []string
}

func (m *mockSessions) IssueSession(_ context.Context, accountID string) (*credentials.Pair, error) {
	m.issued = append(m.issued, accountID)
	now := time.Now().UTC()
	return &credentials.Pair{
		AccountID:        accountID,
		AccessToken:      "access-token",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:     testRefreshToken,
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}, nil
}

func (m *mockSessions) Refresh(_ context.Context, refreshToken string) (*credentials.Pair, error) {
	if refreshToken != testRefreshToken {
		return nil, credentials.ErrTokenNotFound
	}
	return m.IssueSession(context.Background(), testAccount)
}

// failingPublisher rejects every event.
type failingPublisher struct{ err error }

func (p failingPublisher) PublishMovement(context.Context, *telemetry.MovementEvent) error {
	return p.err
}

func (p failingPublisher) PublishKill(context.Context, *telemetry.KillEvent) error { return p.err }

func (p failingPublisher) PublishViolation(context.Context, *anticheat.ViolationReport) error {
	return p.err
}

func (p failingPublisher) PublishSessionEnd(context.Context, *telemetry.SessionEnded) error {
	return p.err
}

// testServer bundles a routed handler with its mocks.
type testServer struct {
	handler  http.Handler
	engine   *mockEngine
	sessions *mockSessions
}

type serverOption func(*HandlerConfig)

var (
	operatorsOnce sync.Once
	operators     *auth.BasicAuthenticator
	operatorsErr  error
)

// testOperators hashes the operator passwords once for the whole package.
func testOperators(t *testing.T) *auth.BasicAuthenticator {
	t.Helper()
	operatorsOnce.Do(func() {
		operators = auth.NewBasicAuthenticator()
		if operatorsErr = operators.AddOperator(testModUser, testModPassword, auth.RoleModerator); operatorsErr != nil {
			return
		}
		operatorsErr = operators.AddOperator(testAdminUser, testAdminPasswd, auth.RoleAdmin)
	})
	if operatorsErr != nil {
		t.Fatalf("AddOperator: %v", operatorsErr)
	}
	return operators
}

func newTestServer(t *testing.T, engine *mockEngine, pub TelemetryPublisher, opts ...serverOption) *testServer {
	t.Helper()

	basic := testOperators(t)
	apiKey := auth.NewAPIKeyAuthenticator(testAPIKey)

	enforcer, err := auth.NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	sessions := &mockSessions{}
	cfg := HandlerConfig{
		Engine:              engine,
		Publisher:           pub,
		Sessions:            sessions,
		APIKey:              apiKey,
		IngestRatePerSecond: 1000,
		IngestBurst:         1000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	chiCfg := DefaultChiMiddlewareConfig()
	chiCfg.RateLimitDisabled = true

	router := NewRouter(
		NewHandler(cfg),
		auth.NewMiddleware(auth.NewChain(apiKey, basic), enforcer, basic),
		NewChiMiddleware(chiCfg),
		nil,
	)
	return &testServer{handler: router.Setup(), engine: engine, sessions: sessions}
}

type requestOption func(*http.Request)

func withAPIKey(r *http.Request) { r.Header.Set(auth.APIKeyHeader, testAPIKey) }

func withModerator(r *http.Request) { r.SetBasicAuth(testModUser, testModPassword) }

func withAdmin(r *http.Request) { r.SetBasicAuth(testAdminUser, testAdminPasswd) }

func (s *testServer) do(t *testing.T, method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var envelope struct {
		Status   string           `json:"status"`
		Data     json.RawMessage  `json:"data"`
		Metadata models.Metadata  `json:"metadata"`
		Error    *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return models.APIResponse{Status: envelope.Status, Metadata: envelope.Metadata, Error: envelope.Error}
}

var errBoom = errors.New("boom")
