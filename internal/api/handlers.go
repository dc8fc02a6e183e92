// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"context"
	"time"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/credentials"
	"github.com/tomtom215/sentinel/internal/telemetry"
)

// Engine is the part of the anti-cheat engine the HTTP layer drives.
type Engine interface {
	VerifyPresence(ctx context.Context, username string) (anticheat.PresenceResult, error)
	ActiveBanCovering(ctx context.Context, accountID string, scope anticheat.BanType) (*anticheat.Ban, error)
	IsPlayerBanned(ctx context.Context, accountID string, banType anticheat.BanType) (*anticheat.Ban, error)
	ListBans(ctx context.Context, accountID string) ([]anticheat.Ban, error)
	BanPlayer(ctx context.Context, req anticheat.BanRequest) (*anticheat.Ban, error)
	KickPlayer(ctx context.Context, accountID string) anticheat.KickResult
	CleanupExpiredBans(ctx context.Context) (int64, error)
	GetViolationHistory(ctx context.Context, accountID string, days int) ([]anticheat.Violation, error)
	ClearPlayerTracking(accountID string)
	UpsertUser(ctx context.Context, u anticheat.UserUpdate) (*anticheat.User, error)
}

// TelemetryPublisher queues ingested events.
type TelemetryPublisher interface {
	PublishMovement(ctx context.Context, ev *telemetry.MovementEvent) error
	PublishKill(ctx context.Context, ev *telemetry.KillEvent) error
	PublishViolation(ctx context.Context, r *anticheat.ViolationReport) error
	PublishSessionEnd(ctx context.Context, ev *telemetry.SessionEnded) error
}

// SessionIssuer issues and rotates game client credentials.
type SessionIssuer interface {
	IssueSession(ctx context.Context, accountID string) (*credentials.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*credentials.Pair, error)
}

// ReadinessCheck returns nil when the named component is ready.
type ReadinessCheck func(ctx context.Context) error

// Handler holds the dependencies of every route.
type Handler struct {
	engine    Engine
	publisher TelemetryPublisher
	sessions  SessionIssuer
	apiKey    *auth.APIKeyAuthenticator
	limiter   *accountLimiter
	checks    map[string]ReadinessCheck
	startTime time.Time
}

// HandlerConfig collects Handler dependencies. Sessions and Checks may be nil.
type HandlerConfig struct {
	Engine    Engine
	Publisher TelemetryPublisher
	Sessions  SessionIssuer
	APIKey    *auth.APIKeyAuthenticator

	IngestRatePerSecond float64
	IngestBurst         int

	Checks map[string]ReadinessCheck
}

// NewHandler creates the route handlers.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		engine:    cfg.Engine,
		publisher: cfg.Publisher,
		sessions:  cfg.Sessions,
		apiKey:    cfg.APIKey,
		limiter:   newAccountLimiter(cfg.IngestRatePerSecond, cfg.IngestBurst),
		checks:    cfg.Checks,
		startTime: time.Now(),
	}
}

// PruneLimiters drops per-account ingest limiters idle for longer than
// idle. It returns how many were dropped.
func (h *Handler) PruneLimiters(idle time.Duration) int {
	return h.limiter.prune(idle)
}
