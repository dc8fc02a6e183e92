// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"context"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
)

// DefaultSweepInterval is how often expired bans are deactivated.
const DefaultSweepInterval = time.Hour

type expiredBanCleaner interface {
	CleanupExpiredBans(ctx context.Context) (int64, error)
}

// Sweeper periodically deactivates expired bans. It sweeps once on start
// and then every interval. A failed sweep is logged and retried on the next
// tick.
type Sweeper struct {
	cleaner  expiredBanCleaner
	interval time.Duration
}

// NewSweeper creates a sweeper. A non-positive interval uses DefaultSweepInterval.
func NewSweeper(cleaner expiredBanCleaner, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{cleaner: cleaner, interval: interval}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	return s.cleaner.CleanupExpiredBans(ctx)
}

// RunWithContext sweeps until ctx is cancelled and returns ctx.Err().
func (s *Sweeper) RunWithContext(ctx context.Context) error {
	logging.Anticheat().Info().Dur("interval", s.interval).Msg("Expired ban sweeper started")

	// Errors are already logged by the cleaner.
	_, _ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Anticheat().Info().Msg("Expired ban sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
