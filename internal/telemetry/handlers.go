// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/validation"
)

// Telemetry results recorded per message.
const (
	resultProcessed = "processed"
	resultInvalid   = "invalid"
	resultFailed    = "failed"
)

// Engine is the part of the anti-cheat engine the handlers drive.
type Engine interface {
	TrackMovement(accountID string, s anticheat.MovementSample) ([]anticheat.Verdict, error)
	TrackKill(killerID string, k anticheat.KillRecord) ([]anticheat.Verdict, error)
	VerdictReport(accountID, username, gameSession string, verdicts []anticheat.Verdict) (anticheat.ViolationReport, bool)
	LogViolation(ctx context.Context, r anticheat.ViolationReport) (*anticheat.LogResult, error)
	EndSession(accountID string)
}

// Handlers turns telemetry messages into engine calls.
//
// Malformed messages are acknowledged and counted as invalid so they are
// never redelivered. A violation report is retried only while it has not
// been recorded; movement and kill redeliveries are ignored by the engine
// using the message UUID.
type Handlers struct {
	engine Engine
}

// NewHandlers creates the telemetry handlers.
func NewHandlers(engine Engine) *Handlers {
	return &Handlers{engine: engine}
}

// Movement tracks a movement sample and emits a violation report when any
// movement detector fires.
func (h *Handlers) Movement(msg *message.Message) ([]*message.Message, error) {
	var ev MovementEvent
	if !decode(TopicMovement, msg, &ev) {
		return nil, nil
	}
	sample := ev.Sample()
	sample.EventID = msg.UUID
	verdicts, err := h.engine.TrackMovement(ev.AccountID, sample)
	if err != nil {
		return nil, reject(TopicMovement, msg, err)
	}
	return h.emitReport(TopicMovement, msg, ev.AccountID, ev.Username, ev.GameSession, verdicts)
}

// Kill tracks a kill and emits a violation report when any kill detector
// fires.
func (h *Handlers) Kill(msg *message.Message) ([]*message.Message, error) {
	var ev KillEvent
	if !decode(TopicKill, msg, &ev) {
		return nil, nil
	}
	record := ev.Record()
	record.EventID = msg.UUID
	verdicts, err := h.engine.TrackKill(ev.KillerAccountID, record)
	if err != nil {
		return nil, reject(TopicKill, msg, err)
	}
	return h.emitReport(TopicKill, msg, ev.KillerAccountID, ev.KillerUsername, ev.GameSession, verdicts)
}

// Violation persists a violation report and applies enforcement.
func (h *Handlers) Violation(msg *message.Message) error {
	var report anticheat.ViolationReport
	if !decode(TopicViolation, msg, &report) {
		return nil
	}

	ctx := messageContext(msg)
	result, err := h.engine.LogViolation(ctx, report)
	if err != nil && !errors.Is(err, anticheat.ErrViolationNotRecorded) && !errors.Is(err, anticheat.ErrInvalidInput) {
		// The row exists; a retry would record the report twice.
		metrics.RecordTelemetry(TopicViolation, resultFailed)
		logging.Ctx(ctx).Error().
			Err(err).
			Str("account_id", report.AccountID).
			Str("message_uuid", msg.UUID).
			Msg("Violation recorded but enforcement bookkeeping failed")
		return nil
	}
	if err != nil {
		return reject(TopicViolation, msg, err)
	}

	metrics.RecordTelemetry(TopicViolation, resultProcessed)
	logging.Ctx(ctx).Debug().
		Str("account_id", report.AccountID).
		Str("action", string(result.Action)).
		Msg("Telemetry violation processed")
	return nil
}

// SessionEnd clears the account's per-match tracking.
func (h *Handlers) SessionEnd(msg *message.Message) error {
	var ev SessionEnded
	if !decode(TopicSessionEnd, msg, &ev) {
		return nil
	}
	h.engine.EndSession(ev.AccountID)
	metrics.RecordTelemetry(TopicSessionEnd, resultProcessed)
	return nil
}

func (h *Handlers) emitReport(topic string, msg *message.Message, accountID, username, gameSession string, verdicts []anticheat.Verdict) ([]*message.Message, error) {
	report, ok := h.engine.VerdictReport(accountID, username, gameSession, verdicts)
	if !ok {
		metrics.RecordTelemetry(topic, resultProcessed)
		return nil, nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		metrics.RecordTelemetry(topic, resultFailed)
		return nil, fmt.Errorf("marshal violation report: %w", err)
	}
	out := message.NewMessage(watermill.NewUUID(), payload)
	middleware.SetCorrelationID(middleware.MessageCorrelationID(msg), out)

	metrics.RecordTelemetry(topic, resultProcessed)
	logging.Ctx(messageContext(msg)).Info().
		Str("account_id", accountID).
		Str("violation_type", string(report.Type)).
		Int("severity", report.Severity).
		Int("verdicts", len(verdicts)).
		Msg("Detectors flagged telemetry")
	return []*message.Message{out}, nil
}

// decode unmarshals and validates the payload. It returns false, after
// counting the message as invalid, when either step fails.
func decode(topic string, msg *message.Message, v interface{}) bool {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		logInvalid(topic, msg, err)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		logInvalid(topic, msg, verr)
		return false
	}
	return true
}

// reject classifies an engine error: invalid input is acknowledged, anything
// else is returned for retry.
func reject(topic string, msg *message.Message, err error) error {
	if errors.Is(err, anticheat.ErrInvalidInput) {
		logInvalid(topic, msg, err)
		return nil
	}
	metrics.RecordTelemetry(topic, resultFailed)
	return fmt.Errorf("handle %s message %s: %w", topic, msg.UUID, err)
}

func logInvalid(topic string, msg *message.Message, err error) {
	metrics.RecordTelemetry(topic, resultInvalid)
	logging.Warn().
		Err(err).
		Str("topic", topic).
		Str("message_uuid", msg.UUID).
		Msg("Dropping invalid telemetry message")
}

// messageContext carries the message correlation id into the engine logs.
func messageContext(msg *message.Message) context.Context {
	ctx := msg.Context()
	if id := middleware.MessageCorrelationID(msg); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	return ctx
}
