// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// BreakerSettings configures BreakerStore.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32        // concurrent probes while half-open
	Interval    time.Duration // closed-state count reset
	Timeout     time.Duration // open duration before probing
	MinRequests uint32
	FailureRate float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10 requests
// and probes again after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "anticheat-store",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		MinRequests: 10,
		FailureRate: 0.6,
	}
}

// BreakerStore wraps a Store with a circuit breaker. While the circuit is
// open every call fails fast with ErrStoreUnavailable. Outcomes that mean
// the store answered (not found, duplicate ban) do not count as failures.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, s BreakerSettings) *BreakerStore {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRate
			if shouldTrip {
				logging.Warn().
					Str("breaker", s.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: storeAnswered,
	})

	return &BreakerStore{next: next, cb: cb, name: s.Name}
}

// State returns the breaker state as closed, half-open or open.
func (b *BreakerStore) State() string {
	return stateToString(b.cb.State())
}

func (b *BreakerStore) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := b.cb.Execute(fn)
	answered := storeAnswered(err)
	if answered {
		metrics.RecordStoreOperation(operation, time.Since(start), nil)
	} else {
		metrics.RecordStoreOperation(operation, time.Since(start), err)
	}

	if !answered {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, operation, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, err
}

// storeAnswered reports whether err is a definite answer from a healthy store.
func storeAnswered(err error) bool {
	return err == nil ||
		errors.Is(err, ErrDuplicateActiveBan) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, context.Canceled)
}

func (b *BreakerStore) exec(operation string, fn func() error) error {
	_, err := b.execute(operation, func() (interface{}, error) { return nil, fn() })
	return err
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerStore) CreateViolation(ctx context.Context, v *Violation) error {
	return b.exec("create_violation", func() error { return b.next.CreateViolation(ctx, v) })
}

func (b *BreakerStore) CountUnresolvedSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	return castResult[int](b.execute("count_violations", func() (interface{}, error) {
		return b.next.CountUnresolvedSince(ctx, accountID, since)
	}))
}

func (b *BreakerStore) SetViolationAction(ctx context.Context, id int64, action Action) error {
	return b.exec("set_violation_action", func() error { return b.next.SetViolationAction(ctx, id, action) })
}

func (b *BreakerStore) ListViolationsSince(ctx context.Context, accountID string, since time.Time) ([]Violation, error) {
	return castResult[[]Violation](b.execute("list_violations", func() (interface{}, error) {
		return b.next.ListViolationsSince(ctx, accountID, since)
	}))
}

func (b *BreakerStore) FindActiveBan(ctx context.Context, accountID string, types []BanType, now time.Time) (*Ban, error) {
	return castResult[*Ban](b.execute("find_active_ban", func() (interface{}, error) {
		return b.next.FindActiveBan(ctx, accountID, types, now)
	}))
}

func (b *BreakerStore) CreateBan(ctx context.Context, ban *Ban) error {
	return b.exec("create_ban", func() error { return b.next.CreateBan(ctx, ban) })
}

func (b *BreakerStore) DeactivateExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	return castResult[int64](b.execute("deactivate_expired_bans", func() (interface{}, error) {
		return b.next.DeactivateExpiredBans(ctx, now)
	}))
}

func (b *BreakerStore) ListBans(ctx context.Context, accountID string) ([]Ban, error) {
	return castResult[[]Ban](b.execute("list_bans", func() (interface{}, error) {
		return b.next.ListBans(ctx, accountID)
	}))
}

func (b *BreakerStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return castResult[*User](b.execute("find_user", func() (interface{}, error) {
		return b.next.FindUserByUsername(ctx, username)
	}))
}

func (b *BreakerStore) SetUserBanned(ctx context.Context, accountID string, banned bool) error {
	return b.exec("set_user_banned", func() error { return b.next.SetUserBanned(ctx, accountID, banned) })
}

func (b *BreakerStore) UpsertUser(ctx context.Context, u *User) error {
	return b.exec("upsert_user", func() error { return b.next.UpsertUser(ctx, u) })
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
