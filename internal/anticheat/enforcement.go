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

// LogViolation records a violation, applies the escalation policy and
// returns the outcome.
//
// If the violation cannot be persisted nothing else happens and the error
// wraps ErrViolationNotRecorded, so resubmitting the report is safe. Once it
// is persisted, enforcement is applied even if a later step fails; a ban
// that could not be written is logged and the violation still records the
// decided action. Errors after that point do not wrap
// ErrViolationNotRecorded and the report must not be resubmitted.
func (e *Engine) LogViolation(ctx context.Context, r ViolationReport) (*LogResult, error) {
	if verr := validation.ValidateStruct(&r); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, verr.Error())
	}

	wctx, cancel := e.writeCtx(ctx)
	defer cancel()
	log := logging.AnticheatCtx(ctx).With().
		Str("account_id", r.AccountID).
		Str("username", r.Username).
		Str("violation_type", string(r.Type)).
		Int("severity", r.Severity).
		Logger()

	now := e.now().UTC()
	v := &Violation{
		AccountID:   r.AccountID,
		Username:    r.Username,
		Type:        r.Type,
		Severity:    r.Severity,
		DetectedAt:  now,
		GameSession: r.GameSession,
		Details:     r.Details,
		ActionTaken: ActionNone,
	}
	if err := e.store.CreateViolation(wctx, v); err != nil {
		log.Error().Err(err).Msg("Failed to record violation")
		return nil, fmt.Errorf("%w: %w", ErrViolationNotRecorded, err)
	}

	count, err := e.store.CountUnresolvedSince(wctx, r.AccountID, now.Add(-e.cfg.ViolationWindow))
	if err != nil {
		log.Error().Err(err).Int64("violation_id", v.ID).Msg("Failed to count violations")
		return nil, fmt.Errorf("count violations: %w", err)
	}

	action := e.cfg.Escalation.Decide(r.Severity, count)
	kicked := false

	if enf, bans := e.cfg.Escalation.Enforcement(action, now); bans {
		_, created, err := e.recordBan(wctx, BanRequest{
			AccountID: r.AccountID,
			Username:  r.Username,
			Type:      enf.Type,
			Reason:    enf.Reason,
			ExpiresAt: enf.ExpiresAt,
		})
		if err != nil {
			log.Error().Err(err).Str("action", string(action)).Msg("Failed to apply ban")
		} else if created {
			e.afterBan(ctx, r.AccountID, enf.Type)
			kicked = true
		}
	} else if action == ActionWarning {
		log.Warn().Int("violation_count", count).Msg("Warning issued")
	}

	if err := e.store.SetViolationAction(wctx, v.ID, action); err != nil {
		log.Error().Err(err).Int64("violation_id", v.ID).Msg("Failed to record violation action")
		return nil, fmt.Errorf("record violation action: %w", err)
	}
	v.ActionTaken = action

	if !kicked && e.cfg.Escalation.ShouldKick(r.Severity) {
		e.KickPlayer(ctx, r.AccountID)
	}

	metrics.RecordViolation(string(r.Type), string(action))
	log.Info().
		Int64("violation_id", v.ID).
		Int("violation_count", count).
		Str("action", string(action)).
		Msg("Violation logged")

	return &LogResult{Violation: v, Action: action, ViolationCount: count}, nil
}

// BanPlayer bans an account unless an active, unexpired ban of equal or
// broader scope already exists, in which case that ban is returned
// unchanged. A new ban is committed before the player is kicked; a new
// permanent ban also flags the user record.
func (e *Engine) BanPlayer(ctx context.Context, req BanRequest) (*Ban, error) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, verr.Error())
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(e.now()) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}

	wctx, cancel := e.writeCtx(ctx)
	defer cancel()

	ban, created, err := e.recordBan(wctx, req)
	if err != nil {
		return nil, err
	}
	if created {
		e.afterBan(ctx, req.AccountID, req.Type)
	}
	return ban, nil
}

// recordBan is the check-then-create step. created is false when an
// existing ban was returned, including when a concurrent writer won.
func (e *Engine) recordBan(ctx context.Context, req BanRequest) (*Ban, bool, error) {
	log := logging.AnticheatCtx(ctx).With().
		Str("account_id", req.AccountID).
		Str("ban_type", string(req.Type)).
		Logger()
	now := e.now().UTC()
	covering := coveringTypes(req.Type)

	existing, err := e.store.FindActiveBan(ctx, req.AccountID, covering, now)
	if err != nil {
		return nil, false, fmt.Errorf("check active ban: %w", err)
	}
	if existing != nil {
		log.Info().Int64("ban_id", existing.ID).Str("existing_type", string(existing.Type)).Msg("Player already banned")
		metrics.RecordBan(string(req.Type), false)
		return existing, false, nil
	}

	ban := &Ban{
		AccountID: req.AccountID,
		Username:  req.Username,
		Type:      req.Type,
		Reason:    req.Reason,
		BannedBy:  req.BannedBy,
		BannedAt:  now,
		ExpiresAt: req.ExpiresAt,
		IsActive:  true,
		Metadata:  req.Metadata,
	}
	if ban.BannedBy == "" {
		ban.BannedBy = SystemBanner
		if ban.Metadata == nil {
			ban.Metadata = map[string]interface{}{"automatic": true, "source": "anticheat"}
		}
	}
	if ban.ExpiresAt != nil {
		t := ban.ExpiresAt.UTC()
		ban.ExpiresAt = &t
	}

	err = e.store.CreateBan(ctx, ban)
	if errors.Is(err, ErrDuplicateActiveBan) {
		winner, ferr := e.readWinner(ctx, req.AccountID, covering, now)
		if ferr != nil {
			return nil, false, fmt.Errorf("read concurrent ban: %w", ferr)
		}
		if winner == nil {
			return nil, false, fmt.Errorf("create ban: %w", err)
		}
		log.Info().Int64("ban_id", winner.ID).Msg("Concurrent ban already recorded")
		metrics.RecordBan(string(req.Type), false)
		return winner, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create ban: %w", err)
	}

	ev := log.Warn().
		Int64("ban_id", ban.ID).
		Str("reason", ban.Reason).
		Str("banned_by", ban.BannedBy)
	if ban.ExpiresAt != nil {
		ev = ev.Time("expires_at", *ban.ExpiresAt)
	}
	ev.Msg("Player banned")
	metrics.RecordBan(string(req.Type), true)
	return ban, true, nil
}

// readWinner re-reads the ban that beat us to the slot. The winner's commit
// can land just after our conflict is reported, so a few short retries are
// allowed.
func (e *Engine) readWinner(ctx context.Context, accountID string, types []BanType, now time.Time) (*Ban, error) {
	for attempt := 1; ; attempt++ {
		winner, err := e.store.FindActiveBan(ctx, accountID, types, now)
		if err != nil || winner != nil || attempt == 3 {
			return winner, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
}

// afterBan runs the post-commit steps of a new ban. Failures are logged.
func (e *Engine) afterBan(ctx context.Context, accountID string, t BanType) {
	if t == BanPermanent {
		uctx, cancel := e.writeCtx(ctx)
		err := e.store.SetUserBanned(uctx, accountID, true)
		cancel()
		if err != nil {
			logging.AnticheatCtx(ctx).Warn().Err(err).Str("account_id", accountID).Msg("Failed to flag user as banned")
		}
	}
	e.KickPlayer(ctx, accountID)
}

// KickPlayer closes the account's live connections and revokes its
// credentials. It never fails; Complete is false when part of it did.
func (e *Engine) KickPlayer(ctx context.Context, accountID string) KickResult {
	kctx, cancel := e.writeCtx(ctx)
	defer cancel()
	log := logging.AnticheatCtx(ctx).With().Str("account_id", accountID).Logger()

	res := KickResult{Complete: true}
	res.Connections = e.conns.CloseAccount(accountID)

	revoked, err := e.creds.RevokeAccount(kctx, accountID)
	if err != nil {
		res.Complete = false
		log.Warn().Err(err).Msg("Failed to revoke credentials during kick")
	}
	res.Credentials = revoked

	metrics.RecordKick(res.Complete)
	log.Info().
		Int("connections_closed", res.Connections).
		Int("credentials_revoked", res.Credentials).
		Msg("Player kicked")
	return res
}

// IsPlayerBanned returns the account's active, unexpired ban, or nil. A
// non-empty banType restricts the lookup to that exact scope.
func (e *Engine) IsPlayerBanned(ctx context.Context, accountID string, banType BanType) (*Ban, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	var types []BanType
	if banType != "" {
		if !banType.Valid() {
			return nil, fmt.Errorf("%w: unknown ban type %q", ErrInvalidInput, banType)
		}
		types = []BanType{banType}
	}

	rctx, cancel := e.readCtx(ctx)
	defer cancel()
	return e.store.FindActiveBan(rctx, accountID, types, e.now().UTC())
}

// ActiveBanCovering returns an active, unexpired ban whose scope covers
// scope, or nil. Gatekeeping middleware uses this.
func (e *Engine) ActiveBanCovering(ctx context.Context, accountID string, scope BanType) (*Ban, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: unknown ban type %q", ErrInvalidInput, scope)
	}
	rctx, cancel := e.readCtx(ctx)
	defer cancel()
	return e.store.FindActiveBan(rctx, accountID, coveringTypes(scope), e.now().UTC())
}

// ListBans returns every ban of the account, newest first.
func (e *Engine) ListBans(ctx context.Context, accountID string) ([]Ban, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	rctx, cancel := e.readCtx(ctx)
	defer cancel()
	return e.store.ListBans(rctx, accountID)
}

// CleanupExpiredBans deactivates every ban whose expiry has passed and
// returns how many changed.
func (e *Engine) CleanupExpiredBans(ctx context.Context) (int64, error) {
	wctx, cancel := e.writeCtx(ctx)
	defer cancel()

	n, err := e.store.DeactivateExpiredBans(wctx, e.now().UTC())
	if err != nil {
		logging.Anticheat().Error().Err(err).Msg("Failed to clean up expired bans")
		return 0, fmt.Errorf("cleanup expired bans: %w", err)
	}
	metrics.RecordSweep(n)
	if n > 0 {
		logging.Anticheat().Info().Int64("count", n).Msg("Expired bans cleaned up")
	}
	return n, nil
}

// GetViolationHistory returns the account's violations from the last days
// days, newest first. days <= 0 uses the configured default.
func (e *Engine) GetViolationHistory(ctx context.Context, accountID string, days int) ([]Violation, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = e.cfg.HistoryDays
	}
	rctx, cancel := e.readCtx(ctx)
	defer cancel()

	since := e.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	out, err := e.store.ListViolationsSince(rctx, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("violation history: %w", err)
	}
	return out, nil
}

// VerifyPresence checks whether username belongs to a player who is
// connected right now. Three consecutive failures for the same account
// without an intervening success or an idle TTL issue a permanent ban.
func (e *Engine) VerifyPresence(ctx context.Context, username string) (PresenceResult, error) {
	rctx, cancel := e.readCtx(ctx)
	defer cancel()
	log := logging.AnticheatCtx(ctx).With().Str("username", username).Logger()

	user, err := e.store.FindUserByUsername(rctx, username)
	if errors.Is(err, ErrUserNotFound) {
		metrics.RecordPresenceCheck("not_found")
		return PresenceResult{Status: PresenceNotFound}, nil
	}
	if err != nil {
		metrics.RecordPresenceCheck("error")
		return PresenceResult{}, fmt.Errorf("lookup player: %w", err)
	}

	if e.isPresent(rctx, user, username) {
		e.presence.Success(user.AccountID)
		metrics.RecordPresenceCheck("verified")
		return PresenceResult{Status: PresenceVerified}, nil
	}

	attempts, exhausted := e.presence.Failure(user.AccountID)
	result := PresenceResult{Status: PresenceNotOnline, Attempts: attempts}
	log = log.With().Str("account_id", user.AccountID).Int("attempts", attempts).Logger()

	if !exhausted {
		metrics.RecordPresenceCheck("not_online")
		log.Info().Msg("Presence check failed")
		return result, nil
	}

	metrics.RecordPresenceCheck("exhausted")
	log.Warn().Msg("Presence check failed repeatedly, banning")
	if _, err := e.BanPlayer(ctx, BanRequest{
		AccountID: user.AccountID,
		Username:  user.Username,
		Type:      BanPermanent,
		Reason:    ReasonPresenceFailure,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to ban after presence failures")
		return result, nil
	}
	result.Banned = true
	return result, nil
}

func (e *Engine) isPresent(ctx context.Context, user *User, username string) bool {
	if e.conns.IsOnline(user.AccountID, username) {
		return true
	}
	for _, check := range []func(context.Context, string) (bool, error){e.creds.HasAccess, e.creds.HasRefresh} {
		ok, err := check(ctx, user.AccountID)
		if err != nil {
			logging.AnticheatCtx(ctx).Warn().Err(err).Str("account_id", user.AccountID).Msg("Credential lookup failed during presence check")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
