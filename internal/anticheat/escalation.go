// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"fmt"
	"sort"
	"time"
)

// Enforcement reasons recorded on automatic bans.
const (
	ReasonMultipleViolations = "Anticheat: Multiple violations detected"
	ReasonSuspiciousActivity = "Anticheat: Suspicious activity"
	ReasonPresenceFailure    = "Anticheat: Failed online verification multiple times - Possible exploiter"

	// SystemBanner is BannedBy for automatic bans.
	SystemBanner = "Anticheat System"
)

// EscalationPolicy maps a violation's severity and the account's trailing
// violation count to an action.
type EscalationPolicy struct {
	WarningThreshold      int
	TempBanThreshold      int
	PermanentBanThreshold int
	TempBanSeverity       int
	PermanentBanSeverity  int
	KickSeverity          int
	TempBanDuration       time.Duration
}

// DefaultEscalationPolicy returns the production policy.
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		WarningThreshold:      3,
		TempBanThreshold:      5,
		PermanentBanThreshold: 10,
		TempBanSeverity:       7,
		PermanentBanSeverity:  9,
		KickSeverity:          7,
		TempBanDuration:       24 * time.Hour,
	}
}

// Decide returns the action for a violation of the given severity when the
// account has count unresolved violations in the window, this one included.
func (p EscalationPolicy) Decide(severity, count int) Action {
	switch {
	case severity >= p.PermanentBanSeverity || count >= p.PermanentBanThreshold:
		return ActionPermanentBan
	case severity >= p.TempBanSeverity || count >= p.TempBanThreshold:
		return ActionTempBan
	case count >= p.WarningThreshold:
		return ActionWarning
	default:
		return ActionNone
	}
}

// ShouldKick reports whether a violation of this severity disconnects the
// player even when no ban results.
func (p EscalationPolicy) ShouldKick(severity int) bool {
	return severity >= p.KickSeverity
}

// Enforcement is the ban an action calls for.
type Enforcement struct {
	Type      BanType
	Reason    string
	ExpiresAt *time.Time
}

// Enforcement returns the ban parameters for a, or false when a does not ban.
func (p EscalationPolicy) Enforcement(a Action, now time.Time) (Enforcement, bool) {
	switch a {
	case ActionPermanentBan:
		return Enforcement{Type: BanPermanent, Reason: ReasonMultipleViolations}, true
	case ActionTempBan:
		expires := now.Add(p.TempBanDuration)
		return Enforcement{Type: BanMatchmaking, Reason: ReasonSuspiciousActivity, ExpiresAt: &expires}, true
	default:
		return Enforcement{}, false
	}
}

// SeverityPolicy is the base severity of each detected violation type.
type SeverityPolicy map[ViolationType]int

// DefaultSeverities returns the production severities.
func DefaultSeverities() SeverityPolicy {
	return SeverityPolicy{
		ViolationSpeedHack: 6,
		ViolationTeleport:  8,
		ViolationFlyHack:   6,
		ViolationAimbot:    8,
		ViolationESP:       7,
		ViolationRapidFire: 5,
		ViolationOther:     5,
	}
}

// SeverityPolicyFromConfig converts a string-keyed map, rejecting unknown
// types and out-of-range values.
func SeverityPolicyFromConfig(m map[string]int) (SeverityPolicy, error) {
	out := DefaultSeverities()
	for k, v := range m {
		t := ViolationType(k)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown violation type %q", k)
		}
		if v < 1 || v > 10 {
			return nil, fmt.Errorf("severity for %s must be 1-10, got %d", k, v)
		}
		out[t] = v
	}
	return out, nil
}

func (s SeverityPolicy) of(t ViolationType) int {
	if v, ok := s[t]; ok {
		return v
	}
	return 5
}

// Combine reduces simultaneous verdicts to one violation. The type is the
// one with the highest base severity and each extra verdict adds one, capped
// at 10. Ties go to the earlier verdict.
func (s SeverityPolicy) Combine(verdicts []Verdict) (ViolationType, int) {
	if len(verdicts) == 0 {
		return "", 0
	}
	best := 0
	for i := 1; i < len(verdicts); i++ {
		if s.of(verdicts[i].Type) > s.of(verdicts[best].Type) {
			best = i
		}
	}
	severity := s.of(verdicts[best].Type) + len(verdicts) - 1
	if severity > 10 {
		severity = 10
	}
	return verdicts[best].Type, severity
}

// verdictDetails flattens verdicts into one details payload. The primary
// verdict's fields are kept at the top level.
func verdictDetails(primary ViolationType, verdicts []Verdict) map[string]interface{} {
	details := make(map[string]interface{})
	types := make([]string, 0, len(verdicts))
	all := make([]map[string]interface{}, 0, len(verdicts))
	for _, v := range verdicts {
		types = append(types, string(v.Type))
		all = append(all, map[string]interface{}{"type": string(v.Type), "details": v.Details})
		if v.Type == primary {
			for k, val := range v.Details {
				details[k] = val
			}
		}
	}
	sort.Strings(types)
	details["detections"] = types
	if len(verdicts) > 1 {
		details["verdicts"] = all
	}
	details["source"] = "telemetry"
	return details
}
