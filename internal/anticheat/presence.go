// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"time"

	"github.com/tomtom215/sentinel/internal/cache"
)

// Presence gate defaults.
const (
	DefaultPresenceMaxAttempts = 3
	DefaultPresenceAttemptTTL  = 5 * time.Minute
)

type attemptCounter struct {
	count int
	timer *time.Timer
}

// PresenceGate counts consecutive failed presence checks per account. A
// counter disappears on success or when its TTL passes without another
// failure. Reaching maxAttempts reports exhaustion and removes the counter.
type PresenceGate struct {
	counters    *cache.ShardedMap[*attemptCounter]
	maxAttempts int
	ttl         time.Duration
}

// NewPresenceGate creates a gate. Non-positive arguments use the defaults.
func NewPresenceGate(maxAttempts int, ttl time.Duration, shards int) *PresenceGate {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPresenceMaxAttempts
	}
	if ttl <= 0 {
		ttl = DefaultPresenceAttemptTTL
	}
	return &PresenceGate{
		counters:    cache.NewShardedMap[*attemptCounter](shards),
		maxAttempts: maxAttempts,
		ttl:         ttl,
	}
}

// Success clears the account's counter.
func (g *PresenceGate) Success(accountID string) {
	g.Reset(accountID)
}

// Failure records a failed check. It returns the new consecutive count and
// whether it reached the limit.
func (g *PresenceGate) Failure(accountID string) (attempts int, exhausted bool) {
	g.counters.Update(accountID, func(c *attemptCounter, ok bool) (*attemptCounter, bool) {
		if !ok {
			c = &attemptCounter{}
		}
		if c.timer != nil {
			c.timer.Stop()
		}
		c.count++
		attempts = c.count

		if c.count >= g.maxAttempts {
			exhausted = true
			return nil, false
		}

		seen := c.count
		c.timer = time.AfterFunc(g.ttl, func() { g.expire(accountID, c, seen) })
		return c, true
	})
	return attempts, exhausted
}

// expire removes the counter only if it is the same one the timer was armed
// for and nothing incremented it since.
func (g *PresenceGate) expire(accountID string, armed *attemptCounter, seen int) {
	g.counters.Update(accountID, func(c *attemptCounter, ok bool) (*attemptCounter, bool) {
		if ok && c == armed && c.count == seen {
			return nil, false
		}
		return c, ok
	})
}

// Attempts returns the account's current consecutive failure count.
func (g *PresenceGate) Attempts(accountID string) int {
	n := 0
	g.counters.View(accountID, func(c *attemptCounter, ok bool) {
		if ok {
			n = c.count
		}
	})
	return n
}

// Reset removes the account's counter and stops its timer.
func (g *PresenceGate) Reset(accountID string) {
	g.counters.Update(accountID, func(c *attemptCounter, ok bool) (*attemptCounter, bool) {
		if ok && c.timer != nil {
			c.timer.Stop()
		}
		return nil, false
	})
}

// Close stops every pending timer.
func (g *PresenceGate) Close() {
	g.counters.Range(func(_ string, c *attemptCounter) bool {
		if c.timer != nil {
			c.timer.Stop()
		}
		return true
	})
}
