// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput is returned before any state is touched when an
	// identifier or report field is malformed.
	ErrInvalidInput = errors.New("anticheat: invalid input")

	// ErrStoreUnavailable is returned while the store circuit breaker is open.
	ErrStoreUnavailable = errors.New("anticheat: store unavailable")

	// ErrDuplicateActiveBan is returned by BanStore.CreateBan when another
	// active ban already holds the (account, scope) slot.
	ErrDuplicateActiveBan = errors.New("anticheat: duplicate active ban")

	// ErrViolationNotRecorded is wrapped by LogViolation errors raised
	// before the violation row exists.
	ErrViolationNotRecorded = errors.New("anticheat: violation not recorded")

	// ErrUserNotFound is returned by UserStore lookups.
	ErrUserNotFound = errors.New("anticheat: user not found")
)

// isUniqueViolation reports whether a DuckDB error is a uniqueness or
// write-write conflict on the same key.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint violat") ||
		strings.Contains(msg, "write-write conflict") ||
		strings.Contains(msg, "conflict on tuple")
}
