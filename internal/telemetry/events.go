// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package telemetry carries game server events into the anti-cheat engine.
//
// Game servers report movement, kills, self-detected violations and session
// ends. Each event type has its own topic. A Watermill router consumes the
// topics; movement and kill handlers run the detectors and emit at most one
// combined violation report onto the violation topic, whose handler persists
// it and applies enforcement. Only the persistence step is retried.
//
// The default transport is an in-process Go channel pub/sub. Builds with the
// nats tag can use NATS JetStream instead.
package telemetry

import (
	"time"

	"github.com/tomtom215/sentinel/internal/anticheat"
)

// Topics
const (
	TopicMovement   = "anticheat.movement"
	TopicKill       = "anticheat.kill"
	TopicViolation  = "anticheat.violation"
	TopicSessionEnd = "anticheat.session_end"

	// DefaultPoisonTopic receives messages that failed every retry.
	DefaultPoisonTopic = "anticheat.poison"
)

// Point is a position or velocity as reported by the game server.
type Point struct {
	X float64 `json:"x" validate:"finite"`
	Y float64 `json:"y" validate:"finite"`
	Z float64 `json:"z" validate:"finite"`
}

func (p Point) vec() anticheat.Vec3 {
	return anticheat.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// MovementEvent is one position report for a player.
type MovementEvent struct {
	AccountID   string `json:"account_id" validate:"required,account_id"`
	Username    string `json:"username" validate:"required,player_name"`
	GameSession string `json:"game_session,omitempty" validate:"omitempty,max=128"`
	Position    Point  `json:"position"`
	Velocity    Point  `json:"velocity"`
	TimestampMs int64  `json:"timestamp_ms" validate:"gte=0"`
}

// Sample converts the event for the engine. A zero timestamp means the
// engine assigns the receive time.
func (e *MovementEvent) Sample() anticheat.MovementSample {
	return anticheat.MovementSample{
		Position:  e.Position.vec(),
		Velocity:  e.Velocity.vec(),
		Timestamp: fromMillis(e.TimestampMs),
	}
}

// KillEvent is one kill. The killer is the tracked account.
type KillEvent struct {
	KillerAccountID string  `json:"killer_account_id" validate:"required,account_id"`
	KillerUsername  string  `json:"killer_username" validate:"required,player_name"`
	VictimAccountID string  `json:"victim_account_id" validate:"required,account_id"`
	GameSession     string  `json:"game_session,omitempty" validate:"omitempty,max=128"`
	Distance        float64 `json:"distance" validate:"gte=0,finite"`
	Headshot        bool    `json:"headshot"`
	TimestampMs     int64   `json:"timestamp_ms" validate:"gte=0"`
}

// Record converts the event for the engine.
func (e *KillEvent) Record() anticheat.KillRecord {
	return anticheat.KillRecord{
		VictimAccountID: e.VictimAccountID,
		Distance:        e.Distance,
		Headshot:        e.Headshot,
		Timestamp:       fromMillis(e.TimestampMs),
	}
}

// SessionEnded marks the end of a player's match.
type SessionEnded struct {
	AccountID string `json:"account_id" validate:"required,account_id"`
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
