// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/sentinel/internal/cache"
)

const limiterShards = 32

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// accountLimiter keeps one token bucket per account for telemetry ingest.
type accountLimiter struct {
	perSecond rate.Limit
	burst     int
	entries   *cache.ShardedMap[*limiterEntry]
	now       func() time.Time
}

func newAccountLimiter(perSecond float64, burst int) *accountLimiter {
	if perSecond <= 0 {
		perSecond = 60
	}
	if burst < 1 {
		burst = 1
	}
	return &accountLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		entries:   cache.NewShardedMap[*limiterEntry](limiterShards),
		now:       time.Now,
	}
}

// allow takes one token from the account's bucket.
func (l *accountLimiter) allow(accountID string) bool {
	now := l.now()
	entry, _ := l.entries.Update(accountID, func(e *limiterEntry, ok bool) (*limiterEntry, bool) {
		if !ok {
			e = &limiterEntry{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		}
		return e, true
	})
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1)
}

// prune removes entries not used within idle.
func (l *accountLimiter) prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle).UnixNano()

	var stale []string
	l.entries.Range(func(key string, e *limiterEntry) bool {
		if e.lastSeen.Load() < cutoff {
			stale = append(stale, key)
		}
		return true
	})

	removed := 0
	for _, key := range stale {
		l.entries.Update(key, func(e *limiterEntry, ok bool) (*limiterEntry, bool) {
			if !ok {
				return nil, false
			}
			if e.lastSeen.Load() >= cutoff {
				return e, true
			}
			removed++
			return nil, false
		})
	}
	return removed
}

func (l *accountLimiter) len() int { return l.entries.Len() }
