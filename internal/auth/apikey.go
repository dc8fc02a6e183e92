// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the game-server key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator maps the shared game-server key to the gameserver role.
type APIKeyAuthenticator struct {
	digest [sha256.Size]byte
}

// NewAPIKeyAuthenticator returns nil when key is empty.
func NewAPIKeyAuthenticator(key string) *APIKeyAuthenticator {
	if key == "" {
		return nil
	}
	return &APIKeyAuthenticator{digest: sha256.Sum256([]byte(key))}
}

// Valid compares key in constant time. Both sides are hashed first so the
// comparison does not depend on the key length.
func (a *APIKeyAuthenticator) Valid(key string) bool {
	if a == nil || key == "" {
		return false
	}
	got := sha256.Sum256([]byte(key))
	return subtle.ConstantTimeCompare(got[:], a.digest[:]) == 1
}

func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Subject, error) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		return nil, ErrNoCredentials
	}
	if !a.Valid(key) {
		return nil, ErrInvalidCredentials
	}
	return &Subject{
		ID:       RoleGameServer,
		Username: RoleGameServer,
		Roles:    []string{RoleGameServer},
		Method:   MethodAPIKey,
	}, nil
}

func (a *APIKeyAuthenticator) Name() string { return MethodAPIKey }
