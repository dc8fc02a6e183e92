// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// Default window capacities.
const (
	DefaultMovementWindow = 100
	DefaultKillWindow     = 50
)

// playerState is everything tracked in memory for one account. It is only
// touched under its shard lock.
type playerState struct {
	movement *cache.Ring[MovementSample]
	kills    *cache.Ring[KillRecord]
	stats    KillStats
	// seen holds the ids of recently tracked events, newest last.
	seen *cache.Ring[string]
}

// Tracker is the rolling-window store. Appends for the same account are
// serialized; different accounts only contend when they hash to the same
// shard.
type Tracker struct {
	players        *cache.ShardedMap[*playerState]
	movementWindow int
	killWindow     int
}

// NewTracker creates a tracker. Non-positive capacities use the defaults.
func NewTracker(movementWindow, killWindow, shards int) *Tracker {
	if movementWindow <= 0 {
		movementWindow = DefaultMovementWindow
	}
	if killWindow <= 0 {
		killWindow = DefaultKillWindow
	}
	return &Tracker{
		players:        cache.NewShardedMap[*playerState](shards),
		movementWindow: movementWindow,
		killWindow:     killWindow,
	}
}

// newPlayerState is the only place a tracking entry is created.
func (t *Tracker) newPlayerState() *playerState {
	return &playerState{
		movement: cache.NewRing[MovementSample](t.movementWindow),
		kills:    cache.NewRing[KillRecord](t.killWindow),
		seen:     cache.NewRing[string](t.movementWindow + t.killWindow),
	}
}

func (t *Tracker) upsert(accountID string, fn func(p *playerState)) {
	t.players.Update(accountID, func(p *playerState, ok bool) (*playerState, bool) {
		if !ok {
			p = t.newPlayerState()
			metrics.TrackedPlayers.Inc()
		}
		fn(p)
		return p, true
	})
}

// AppendMovement stores s and returns copies of the newest last samples,
// oldest first, taken atomically with the append.
func (t *Tracker) AppendMovement(accountID string, s MovementSample, last int) []MovementSample {
	var out []MovementSample
	t.upsert(accountID, func(p *playerState) {
		p.movement.Push(s)
		out = p.movement.Last(last)
	})
	return out
}

// AppendKill stores k, counts it, and returns the resulting window.
func (t *Tracker) AppendKill(accountID string, k KillRecord) KillWindow {
	var w KillWindow
	t.upsert(accountID, func(p *playerState) {
		p.kills.Push(k)
		p.stats.TotalKills++
		if k.Headshot {
			p.stats.HeadshotCount++
		}
		w = KillWindow{Current: k, Kills: p.kills.Snapshot(), Stats: p.stats}
	})
	return w
}

// MarkSeen records eventID for the account and reports whether it is new.
// The most recent movement plus kill window capacity ids are remembered,
// so a redelivered event is recognised while its sample could still be in
// a window.
func (t *Tracker) MarkSeen(accountID, eventID string) bool {
	fresh := true
	t.upsert(accountID, func(p *playerState) {
		if p.seen.Count(func(id string) bool { return id == eventID }) > 0 {
			fresh = false
			return
		}
		p.seen.Push(eventID)
	})
	return fresh
}

// AddSuspicious adds n to the account's suspicious kill counter.
func (t *Tracker) AddSuspicious(accountID string, n int) {
	if n <= 0 {
		return
	}
	t.upsert(accountID, func(p *playerState) {
		p.stats.SuspiciousKills += n
	})
}

// MovementSnapshot copies the movement window, oldest first.
func (t *Tracker) MovementSnapshot(accountID string) []MovementSample {
	var out []MovementSample
	t.players.View(accountID, func(p *playerState, ok bool) {
		if ok {
			out = p.movement.Snapshot()
		}
	})
	return out
}

// KillSnapshot copies the kill window, oldest first.
func (t *Tracker) KillSnapshot(accountID string) []KillRecord {
	var out []KillRecord
	t.players.View(accountID, func(p *playerState, ok bool) {
		if ok {
			out = p.kills.Snapshot()
		}
	})
	return out
}

// Stats returns the account's kill counters.
func (t *Tracker) Stats(accountID string) (KillStats, bool) {
	var (
		stats KillStats
		found bool
	)
	t.players.View(accountID, func(p *playerState, ok bool) {
		if ok {
			stats, found = p.stats, true
		}
	})
	return stats, found
}

// ClearMovement empties the movement window and keeps kill state.
func (t *Tracker) ClearMovement(accountID string) {
	t.players.Update(accountID, func(p *playerState, ok bool) (*playerState, bool) {
		if ok {
			p.movement.Reset()
		}
		return p, ok
	})
}

// ResetKills empties the kill window and zeroes the kill counters.
func (t *Tracker) ResetKills(accountID string) {
	t.players.Update(accountID, func(p *playerState, ok bool) (*playerState, bool) {
		if ok {
			p.kills.Reset()
			p.stats = KillStats{}
		}
		return p, ok
	})
}

// Clear drops all tracked state for the account.
func (t *Tracker) Clear(accountID string) {
	if t.players.Delete(accountID) {
		metrics.TrackedPlayers.Dec()
	}
}

// Len returns the number of tracked accounts.
func (t *Tracker) Len() int {
	return t.players.Len()
}
