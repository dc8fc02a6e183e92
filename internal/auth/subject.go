// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"context"
	"errors"
	"net/http"
)

// Roles known to the embedded policy.
const (
	RoleGameServer = "gameserver"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
)

// Authentication methods recorded on a Subject.
const (
	MethodAPIKey = "api_key"
	MethodBasic  = "basic"
)

var (
	// ErrNoCredentials means the request carried nothing this authenticator
	// understands. The chain moves on to the next authenticator.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials means credentials were present but wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Subject is an authenticated caller.
type Subject struct {
	ID       string
	Username string
	Roles    []string
	Method   string
}

// HasRole reports whether the subject holds role.
func (s *Subject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authenticator extracts a Subject from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Subject, error)
	Name() string
}

type subjectKey struct{}

// ContextWithSubject stores the subject on ctx.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFromContext returns the subject stored by the Authenticate
// middleware, or nil.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(subjectKey{}).(*Subject)
	return s
}

// Chain tries authenticators in order. ErrNoCredentials moves on to the next
// one; any other error stops the chain.
type Chain struct {
	authenticators []Authenticator
}

// NewChain builds a chain. Nil entries are skipped.
func NewChain(authenticators ...Authenticator) *Chain {
	c := &Chain{}
	for _, a := range authenticators {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

func (c *Chain) Authenticate(r *http.Request) (*Subject, error) {
	for _, a := range c.authenticators {
		s, err := a.Authenticate(r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		return s, err
	}
	return nil, ErrNoCredentials
}

func (c *Chain) Name() string { return "chain" }
