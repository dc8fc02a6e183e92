// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/telemetry"
)

// IngestMovement queues a movement sample.
func (h *Handler) IngestMovement(w http.ResponseWriter, r *http.Request) {
	var ev telemetry.MovementEvent
	if !decodeAndValidate(w, r, &ev) {
		return
	}
	h.ingest(w, r, ev.AccountID, telemetry.TopicMovement, func(ctx context.Context) error {
		return h.publisher.PublishMovement(ctx, &ev)
	})
}

// IngestKill queues a kill, throttled on the killer's account.
func (h *Handler) IngestKill(w http.ResponseWriter, r *http.Request) {
	var ev telemetry.KillEvent
	if !decodeAndValidate(w, r, &ev) {
		return
	}
	h.ingest(w, r, ev.KillerAccountID, telemetry.TopicKill, func(ctx context.Context) error {
		return h.publisher.PublishKill(ctx, &ev)
	})
}

// IngestViolation queues a violation detected by the game server itself.
func (h *Handler) IngestViolation(w http.ResponseWriter, r *http.Request) {
	var report anticheat.ViolationReport
	if !decodeAndValidate(w, r, &report) {
		return
	}
	h.ingest(w, r, report.AccountID, telemetry.TopicViolation, func(ctx context.Context) error {
		return h.publisher.PublishViolation(ctx, &report)
	})
}

// IngestSessionEnd queues the end of the account's match. It is not
// throttled.
func (h *Handler) IngestSessionEnd(w http.ResponseWriter, r *http.Request) {
	var ev telemetry.SessionEnded
	if !decodeAndValidate(w, r, &ev) {
		return
	}
	h.publish(w, r, telemetry.TopicSessionEnd, func(ctx context.Context) error {
		return h.publisher.PublishSessionEnd(ctx, &ev)
	})
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, accountID, topic string, publish func(context.Context) error) {
	if !h.limiter.allow(accountID) {
		logging.Ctx(r.Context()).Warn().
			Str("account_id", accountID).
			Str("topic", topic).
			Msg("Telemetry throttled")
		respondError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited, "Telemetry rate exceeded for account", nil)
		return
	}
	h.publish(w, r, topic, publish)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, topic string, publish func(context.Context) error) {
	if err := publish(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Telemetry pipeline unavailable", err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, models.AcceptedResponse{
		Topic:         topic,
		CorrelationID: logging.CorrelationIDFromContext(r.Context()),
	}, time.Time{})
}
