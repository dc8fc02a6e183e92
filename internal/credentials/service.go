// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package credentials

import (
	"context"
	"errors"
	"fmt"
)

// Service issues registered token pairs and authenticates presented tokens.
type Service struct {
	issuer   *Issuer
	registry *BadgerRegistry
}

// NewService combines an issuer and a registry.
func NewService(issuer *Issuer, registry *BadgerRegistry) *Service {
	return &Service{issuer: issuer, registry: registry}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *BadgerRegistry { return s.registry }

// IssueSession signs a new pair for the account and registers both tokens.
func (s *Service) IssueSession(ctx context.Context, accountID string) (*Pair, error) {
	pair, err := s.issuer.IssuePair(accountID)
	if err != nil {
		return nil, err
	}
	if err := s.registry.StorePair(ctx, pair); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	return pair, nil
}

// Authenticate verifies a token of the given kind. The token must parse and
// still be registered, so revoked tokens fail with ErrTokenNotFound.
func (s *Service) Authenticate(ctx context.Context, token string, kind Kind) (*Claims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	rec, err := s.registry.Lookup(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if rec.AccountID != claims.AccountID {
		return nil, ErrTokenNotFound
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new pair. The old refresh
// token is consumed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.Authenticate(ctx, refreshToken, KindRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Delete(ctx, claims.AccountID, KindRefresh, claims.ID); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, err
	}
	return s.IssueSession(ctx, claims.AccountID)
}
