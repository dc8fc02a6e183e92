// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/validation"
)

// ConnectionRegistry is the live game connection registry.
type ConnectionRegistry interface {
	// IsOnline reports whether the account has a live connection whose
	// display name equals displayName.
	IsOnline(accountID, displayName string) bool
	// CloseAccount closes every connection of the account and returns how
	// many were closed.
	CloseAccount(accountID string) int
}

// CredentialRegistry holds issued access and refresh credentials.
type CredentialRegistry interface {
	HasAccess(ctx context.Context, accountID string) (bool, error)
	HasRefresh(ctx context.Context, accountID string) (bool, error)
	// RevokeAccount removes every credential of the account and returns the
	// number removed.
	RevokeAccount(ctx context.Context, accountID string) (int, error)
}

// Config configures the engine.
type Config struct {
	Detectors  DetectorConfig
	Escalation EscalationPolicy
	Severities SeverityPolicy

	MovementWindow int
	KillWindow     int
	Shards         int

	// ViolationWindow is the trailing window for the escalation count.
	ViolationWindow time.Duration
	// HistoryDays is the GetViolationHistory default.
	HistoryDays int
	// StoreTimeout bounds each store and kick call.
	StoreTimeout time.Duration

	// ResetKillStatsPerMatch clears kill state on EndSession.
	ResetKillStatsPerMatch bool

	PresenceMaxAttempts int
	PresenceAttemptTTL  time.Duration
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{
		Detectors:           DefaultDetectorConfig(),
		Escalation:          DefaultEscalationPolicy(),
		Severities:          DefaultSeverities(),
		MovementWindow:      DefaultMovementWindow,
		KillWindow:          DefaultKillWindow,
		Shards:              64,
		ViolationWindow:     7 * 24 * time.Hour,
		HistoryDays:         30,
		StoreTimeout:        5 * time.Second,
		PresenceMaxAttempts: DefaultPresenceMaxAttempts,
		PresenceAttemptTTL:  DefaultPresenceAttemptTTL,
	}
}

// Dependencies are the engine's collaborators. Connections and Credentials
// may be nil, in which case kicks and presence checks only see the store.
type Dependencies struct {
	Store       Store
	Connections ConnectionRegistry
	Credentials CredentialRegistry
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine ties the tracker, detectors, escalation policy, ban registry and
// presence gate together. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	store    Store
	conns    ConnectionRegistry
	creds    CredentialRegistry
	tracker  *Tracker
	presence *PresenceGate
	now      func() time.Time
}

// NewEngine creates an engine.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("anticheat: store is required")
	}
	if cfg.Severities == nil {
		cfg.Severities = DefaultSeverities()
	}
	if cfg.ViolationWindow <= 0 {
		cfg.ViolationWindow = 7 * 24 * time.Hour
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 30
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	e := &Engine{
		cfg:      cfg,
		store:    deps.Store,
		conns:    deps.Connections,
		creds:    deps.Credentials,
		tracker:  NewTracker(cfg.MovementWindow, cfg.KillWindow, cfg.Shards),
		presence: NewPresenceGate(cfg.PresenceMaxAttempts, cfg.PresenceAttemptTTL, cfg.Shards),
		now:      deps.Now,
	}
	if e.conns == nil {
		e.conns = noConnections{}
	}
	if e.creds == nil {
		e.creds = noCredentials{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Tracker exposes the rolling-window store.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Close stops pending presence timers.
func (e *Engine) Close() {
	e.presence.Close()
}

// readCtx bounds a store read by StoreTimeout and the caller's context.
func (e *Engine) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.StoreTimeout)
}

// writeCtx bounds an enforcement write by StoreTimeout only. Once started,
// enforcement is not cancelled by the caller going away.
func (e *Engine) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StoreTimeout)
}

func validateAccountID(accountID string) error {
	var v struct {
		AccountID string `validate:"required,account_id"`
	}
	v.AccountID = accountID
	if verr := validation.ValidateStruct(&v); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, verr.Error())
	}
	return nil
}

// TrackMovement appends a movement sample and returns every movement verdict.
// A sample with an already tracked EventID is ignored and yields no verdicts.
func (e *Engine) TrackMovement(accountID string, s MovementSample) ([]Verdict, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if e.duplicate(accountID, s.EventID) {
		return nil, nil
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = e.now()
	}

	window := e.tracker.AppendMovement(accountID, s, e.cfg.Detectors.movementLookback())
	verdicts := EvaluateMovement(window, e.cfg.Detectors)
	for _, v := range verdicts {
		metrics.RecordDetection(string(v.Type))
	}
	return verdicts, nil
}

// TrackKill appends a kill for the killer and returns every kill verdict.
// Aimbot and ESP verdicts increment the killer's suspicious kill counter.
// Redelivered kills are ignored as in TrackMovement.
func (e *Engine) TrackKill(killerID string, k KillRecord) ([]Verdict, error) {
	if err := validateAccountID(killerID); err != nil {
		return nil, err
	}
	if e.duplicate(killerID, k.EventID) {
		return nil, nil
	}
	if k.Timestamp.IsZero() {
		k.Timestamp = e.now()
	}

	window := e.tracker.AppendKill(killerID, k)
	verdicts := EvaluateKill(window, e.cfg.Detectors)

	suspicious := 0
	for _, v := range verdicts {
		metrics.RecordDetection(string(v.Type))
		if countsAsSuspiciousKill(v.Type) {
			suspicious++
		}
	}
	e.tracker.AddSuspicious(killerID, suspicious)
	return verdicts, nil
}

func (e *Engine) duplicate(accountID, eventID string) bool {
	if eventID == "" || e.tracker.MarkSeen(accountID, eventID) {
		return false
	}
	logging.Anticheat().Debug().
		Str("account_id", accountID).
		Str("event_id", eventID).
		Msg("Ignoring redelivered telemetry event")
	return true
}

// ReportVerdicts records simultaneous verdicts for one account as a single
// violation at the combined severity. It returns nil when there are none.
func (e *Engine) ReportVerdicts(ctx context.Context, accountID, username, gameSession string, verdicts []Verdict) (*LogResult, error) {
	report, ok := e.VerdictReport(accountID, username, gameSession, verdicts)
	if !ok {
		return nil, nil
	}
	return e.LogViolation(ctx, report)
}

// VerdictReport builds the violation report ReportVerdicts would log. ok is
// false when there are no verdicts.
func (e *Engine) VerdictReport(accountID, username, gameSession string, verdicts []Verdict) (ViolationReport, bool) {
	if len(verdicts) == 0 {
		return ViolationReport{}, false
	}
	primary, severity := e.cfg.Severities.Combine(verdicts)
	return ViolationReport{
		AccountID:   accountID,
		Username:    username,
		Type:        primary,
		Severity:    severity,
		Details:     verdictDetails(primary, verdicts),
		GameSession: gameSession,
	}, true
}

// EndSession is called when the account's match ends. The movement window
// is always cleared; kill state is cleared only with ResetKillStatsPerMatch.
func (e *Engine) EndSession(accountID string) {
	e.tracker.ClearMovement(accountID)
	if e.cfg.ResetKillStatsPerMatch {
		e.tracker.ResetKills(accountID)
	}
	logging.Anticheat().Debug().
		Str("account_id", accountID).
		Bool("kills_reset", e.cfg.ResetKillStatsPerMatch).
		Msg("Session ended")
}

// ClearPlayerTracking drops all in-memory state for the account: both
// windows, kill counters and the presence attempt counter.
func (e *Engine) ClearPlayerTracking(accountID string) {
	e.tracker.Clear(accountID)
	e.presence.Reset(accountID)
	logging.Anticheat().Info().Str("account_id", accountID).Msg("Player tracking cleared")
}

// UserUpdate is the identity record consulted by presence checks.
type UserUpdate struct {
	AccountID   string `json:"account_id" validate:"required,account_id"`
	Username    string `json:"username" validate:"required,player_name"`
	DisplayName string `json:"display_name" validate:"omitempty,max=64"`
}

// UpsertUser creates or renames the account's user record. The banned flag
// of an existing record is kept.
func (e *Engine) UpsertUser(ctx context.Context, u UserUpdate) (*User, error) {
	if verr := validation.ValidateStruct(&u); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, verr.Error())
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}

	wctx, cancel := e.writeCtx(ctx)
	defer cancel()

	user := &User{
		AccountID:   u.AccountID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		UpdatedAt:   e.now().UTC(),
	}
	if err := e.store.UpsertUser(wctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

type noConnections struct{}

func (noConnections) IsOnline(string, string) bool { return false }
func (noConnections) CloseAccount(string) int      { return 0 }

type noCredentials struct{}

func (noCredentials) HasAccess(context.Context, string) (bool, error)  { return false, nil }
func (noCredentials) HasRefresh(context.Context, string) (bool, error) { return false, nil }
func (noCredentials) RevokeAccount(context.Context, string) (int, error) {
	return 0, nil
}
