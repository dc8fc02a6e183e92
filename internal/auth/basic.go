// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered in tests.
var bcryptCost = 12

const minPasswordLength = 12

type operator struct {
	username     string
	passwordHash []byte
	role         string
}

// BasicAuthenticator checks HTTP Basic credentials of configured operators.
// Passwords are hashed once at construction.
type BasicAuthenticator struct {
	operators []operator

	// dummyHash is compared against for unknown usernames so both paths
	// spend one bcrypt comparison.
	dummyHash []byte
}

// NewBasicAuthenticator returns an authenticator with no operators.
func NewBasicAuthenticator() *BasicAuthenticator {
	hash, _ := bcrypt.GenerateFromPassword([]byte("sentinel-unknown-operator"), bcryptCost)
	return &BasicAuthenticator{dummyHash: hash}
}

// AddOperator registers username with role. Usernames must be unique.
func (b *BasicAuthenticator) AddOperator(username, password, role string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password for %s must be at least %d characters", username, minPasswordLength)
	}
	for _, op := range b.operators {
		if op.username == username {
			return fmt.Errorf("operator %s already registered", username)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	b.operators = append(b.operators, operator{username: username, passwordHash: hash, role: role})
	return nil
}

// Len returns the number of registered operators.
func (b *BasicAuthenticator) Len() int { return len(b.operators) }

// Authenticate validates the Authorization header. Requests without Basic
// credentials return ErrNoCredentials.
func (b *BasicAuthenticator) Authenticate(r *http.Request) (*Subject, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Basic ") {
		return nil, ErrNoCredentials
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	var match *operator
	for i := range b.operators {
		if subtle.ConstantTimeCompare([]byte(username), []byte(b.operators[i].username)) == 1 {
			match = &b.operators[i]
		}
	}

	hash := b.dummyHash
	if match != nil {
		hash = match.passwordHash
	}
	passwordOK := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
	if match == nil || !passwordOK {
		return nil, ErrInvalidCredentials
	}

	return &Subject{
		ID:       match.username,
		Username: match.username,
		Roles:    []string{match.role},
		Method:   MethodBasic,
	}, nil
}

func (b *BasicAuthenticator) Name() string { return MethodBasic }

// WWWAuthenticate is sent with 401 responses.
func (b *BasicAuthenticator) WWWAuthenticate() string {
	return `Basic realm="Sentinel", charset="UTF-8"`
}
