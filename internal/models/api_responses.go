// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package models holds the JSON shapes of the HTTP API.
package models

import (
	"time"

	"github.com/tomtom215/sentinel/internal/anticheat"
)

// APIResponse wraps every JSON response.
//
// Status is "success" or "error". Error is set only when Status is "error".
//
//	{
//	  "status": "success",
//	  "data": {"account_id": "acc-1", "bans": [...]},
//	  "metadata": {"timestamp": "2026-03-14T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata is attached to every response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is the machine-readable error body.
//
// Common codes:
//   - VALIDATION_ERROR: malformed path, query or body
//   - ANTICHEAT_BANNED: the account holds a ban covering the requested scope
//   - SERVICE_UNAVAILABLE: the store circuit is open
//   - DATABASE_ERROR: a store call failed
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ViolationHistoryResponse is returned by the violation history route.
type ViolationHistoryResponse struct {
	AccountID  string                `json:"account_id"`
	Days       int                   `json:"days"`
	Count      int                   `json:"count"`
	Violations []anticheat.Violation `json:"violations"`
}

// BanStatusResponse is returned by the ban lookup route. Active is nil when
// the account holds no active ban of the requested scope.
type BanStatusResponse struct {
	AccountID string          `json:"account_id"`
	Banned    bool            `json:"banned"`
	Active    *anticheat.Ban  `json:"active,omitempty"`
	History   []anticheat.Ban `json:"history"`
}

// BanCreateRequest is the body of a manual ban. ExpiresInHours of zero
// means no expiry.
type BanCreateRequest struct {
	AccountID      string  `json:"account_id" validate:"required,account_id"`
	Username       string  `json:"username" validate:"required,player_name"`
	BanType        string  `json:"ban_type" validate:"required,oneof=permanent matchmaking competitive"`
	Reason         string  `json:"reason" validate:"required,max=512"`
	ExpiresInHours float64 `json:"expires_in_hours" validate:"gte=0,lte=87600,finite"`
}

// MatchmakingTicketResponse is returned when the ban gate lets a player through.
type MatchmakingTicketResponse struct {
	AccountID string    `json:"account_id"`
	Ticket    string    `json:"ticket"`
	IssuedAt  time.Time `json:"issued_at"`
}

// SweepResponse reports a manual expiry sweep.
type SweepResponse struct {
	Deactivated int64 `json:"deactivated"`
}

// SessionResponse carries a freshly issued token pair.
type SessionResponse struct {
	AccountID        string    `json:"account_id"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// UserUpdateRequest is the body of the user upsert route.
type UserUpdateRequest struct {
	Username    string `json:"username" validate:"required,player_name"`
	DisplayName string `json:"display_name" validate:"omitempty,max=64"`
}

// AcceptedResponse acknowledges a queued telemetry event.
type AcceptedResponse struct {
	Topic         string `json:"topic"`
	CorrelationID string `json:"correlation_id"`
}

// HealthResponse is returned by the readiness probe.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Uptime     float64           `json:"uptime_seconds"`
}
