// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"math"
	"time"
)

// ViolationType identifies the kind of cheating a violation records.
type ViolationType string

const (
	ViolationSpeedHack ViolationType = "speed_hack"
	ViolationTeleport  ViolationType = "teleport"
	ViolationFlyHack   ViolationType = "fly_hack"
	ViolationAimbot    ViolationType = "aimbot"
	ViolationESP       ViolationType = "esp_wallhack"
	ViolationRapidFire ViolationType = "rapid_fire"
	ViolationOther     ViolationType = "other"
)

// ViolationTypes lists every known violation type.
var ViolationTypes = []ViolationType{
	ViolationSpeedHack,
	ViolationTeleport,
	ViolationFlyHack,
	ViolationAimbot,
	ViolationESP,
	ViolationRapidFire,
	ViolationOther,
}

// Valid reports whether t is a known violation type.
func (t ViolationType) Valid() bool {
	for _, known := range ViolationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Action is the enforcement outcome recorded on a violation.
type Action string

const (
	ActionNone         Action = "none"
	ActionWarning      Action = "warning"
	ActionTempBan      Action = "temp_ban"
	ActionPermanentBan Action = "permanent_ban"
)

// BanType is the scope of a ban.
type BanType string

const (
	// BanPermanent blocks the account entirely.
	BanPermanent BanType = "permanent"
	// BanMatchmaking blocks matchmaking and competitive play.
	BanMatchmaking BanType = "matchmaking"
	// BanCompetitive blocks competitive play only.
	BanCompetitive BanType = "competitive"
)

// BanTypes lists every ban scope, broadest first.
var BanTypes = []BanType{BanPermanent, BanMatchmaking, BanCompetitive}

func (b BanType) rank() int {
	switch b {
	case BanPermanent:
		return 3
	case BanMatchmaking:
		return 2
	case BanCompetitive:
		return 1
	default:
		return 0
	}
}

// Valid reports whether b is a known scope.
func (b BanType) Valid() bool { return b.rank() > 0 }

// Covers reports whether a ban of scope b also restricts everything a ban
// of scope other restricts.
func (b BanType) Covers(other BanType) bool {
	return b.Valid() && other.Valid() && b.rank() >= other.rank()
}

// coveringTypes returns every scope that covers t.
func coveringTypes(t BanType) []BanType {
	var out []BanType
	for _, bt := range BanTypes {
		if bt.Covers(t) {
			out = append(out, bt)
		}
	}
	return out
}

// Violation is a single detected or reported offence. Only ActionTaken and
// Resolved change after creation.
type Violation struct {
	ID          int64                  `json:"id"`
	AccountID   string                 `json:"account_id"`
	Username    string                 `json:"username"`
	Type        ViolationType          `json:"violation_type"`
	Severity    int                    `json:"severity"`
	DetectedAt  time.Time              `json:"detected_at"`
	GameSession string                 `json:"game_session,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ActionTaken Action                 `json:"action_taken"`
	Resolved    bool                   `json:"resolved"`
}

// Ban restricts an account. A nil ExpiresAt never expires.
type Ban struct {
	ID        int64                  `json:"id"`
	AccountID string                 `json:"account_id"`
	Username  string                 `json:"username"`
	Type      BanType                `json:"ban_type"`
	Reason    string                 `json:"reason"`
	BannedBy  string                 `json:"banned_by"`
	BannedAt  time.Time              `json:"banned_at"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	IsActive  bool                   `json:"is_active"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ActiveAt reports whether the ban restricts the account at now. This checks
// the expiry directly, so it is exact even before the sweeper has run.
func (b *Ban) ActiveAt(now time.Time) bool {
	return b.IsActive && (b.ExpiresAt == nil || b.ExpiresAt.After(now))
}

// User is the subset of the account record the engine reads and writes.
type User struct {
	AccountID   string    `json:"account_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Banned      bool      `json:"banned"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Vec3 is a position or velocity in world units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// MovementSample is one position report for an account.
type MovementSample struct {
	Position  Vec3      `json:"position"`
	Velocity  Vec3      `json:"velocity"`
	Timestamp time.Time `json:"timestamp"`
	// EventID identifies the delivery. A sample whose id was already
	// tracked for the account is ignored.
	EventID string `json:"-"`
}

// KillRecord is one kill credited to the tracked account.
type KillRecord struct {
	VictimAccountID string    `json:"victim_account_id"`
	Distance        float64   `json:"distance"`
	Headshot        bool      `json:"headshot"`
	Timestamp       time.Time `json:"timestamp"`
	// EventID identifies the delivery, as on MovementSample.
	EventID string `json:"-"`
}

// KillStats are monotonic counters kept alongside the kill window. They are
// not decremented when kills fall out of the window.
type KillStats struct {
	TotalKills      int `json:"total_kills"`
	HeadshotCount   int `json:"headshot_count"`
	SuspiciousKills int `json:"suspicious_kills"`
}

// HeadshotRatio returns HeadshotCount/TotalKills, or 0 with no kills.
func (s KillStats) HeadshotRatio() float64 {
	if s.TotalKills == 0 {
		return 0
	}
	return float64(s.HeadshotCount) / float64(s.TotalKills)
}

// KillWindow is the detector input for one kill: the window after the kill
// was appended and the counters after it was counted.
type KillWindow struct {
	Current KillRecord
	Kills   []KillRecord // oldest first, Current last
	Stats   KillStats
}

// Verdict is a single detector finding.
type Verdict struct {
	Type    ViolationType          `json:"type"`
	Details map[string]interface{} `json:"details"`
}

// ViolationReport is the input to LogViolation.
type ViolationReport struct {
	AccountID   string                 `json:"account_id" validate:"required,account_id"`
	Username    string                 `json:"username" validate:"required,player_name"`
	Type        ViolationType          `json:"type" validate:"required,oneof=speed_hack teleport fly_hack aimbot esp_wallhack rapid_fire other"`
	Severity    int                    `json:"severity" validate:"gte=1,lte=10"`
	Details     map[string]interface{} `json:"details,omitempty"`
	GameSession string                 `json:"game_session,omitempty" validate:"omitempty,max=128"`
}

// LogResult is what LogViolation returns.
type LogResult struct {
	Violation      *Violation `json:"violation"`
	Action         Action     `json:"action"`
	ViolationCount int        `json:"violation_count"`
}

// BanRequest is the input to BanPlayer. An empty BannedBy marks the ban as
// automatic.
type BanRequest struct {
	AccountID string                 `json:"account_id" validate:"required,account_id"`
	Username  string                 `json:"username" validate:"required,player_name"`
	Type      BanType                `json:"ban_type" validate:"required,oneof=permanent matchmaking competitive"`
	Reason    string                 `json:"reason" validate:"required,max=512"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	BannedBy  string                 `json:"banned_by,omitempty" validate:"omitempty,max=128"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// KickResult reports what a kick managed to terminate.
type KickResult struct {
	Connections int  `json:"connections_closed"`
	Credentials int  `json:"credentials_revoked"`
	Complete    bool `json:"complete"`
}

// PresenceStatus is the outcome of a presence verification.
type PresenceStatus string

const (
	PresenceVerified  PresenceStatus = "verified"
	PresenceNotOnline PresenceStatus = "not_online"
	PresenceNotFound  PresenceStatus = "not_found"
)

// PresenceResult is what VerifyPresence returns.
type PresenceResult struct {
	Status   PresenceStatus
	Attempts int  // consecutive failures after this check
	Banned   bool // this check exhausted the attempts and issued a ban
}
