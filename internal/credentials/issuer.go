// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package credentials issues game-client access and refresh tokens and keeps
// the registry of live ones. A token is valid only while its registry entry
// exists, so revoking an account takes effect immediately.
package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/sentinel/internal/config"
)

// Kind distinguishes access from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrTokenNotFound is returned when a token is unknown, expired or revoked.
	ErrTokenNotFound = errors.New("credentials: token not found")

	// ErrWrongKind is returned when a refresh token is presented where an
	// access token is required, or the reverse.
	ErrWrongKind = errors.New("credentials: wrong token kind")
)

// Claims are the JWT claims of a game-client token. ID (jti) is the
// registry key.
type Claims struct {
	AccountID string `json:"account_id"`
	Kind      Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Pair is a freshly issued access and refresh token.
type Pair struct {
	AccountID        string    `json:"account_id"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`

	access  *Claims
	refresh *Claims
}

// Issuer signs and parses HS256 tokens.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an issuer from the credentials configuration.
func NewIssuer(cfg *config.CredentialsConfig) (*Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("credentials JWT secret is required but was empty")
	}
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair signs a new access and refresh token for the account.
func (i *Issuer) IssuePair(accountID string) (*Pair, error) {
	access, accessClaims, err := i.sign(accountID, KindAccess, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := i.sign(accountID, KindRefresh, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccountID:        accountID,
		AccessToken:      access,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
		access:           accessClaims,
		refresh:          refreshClaims,
	}, nil
}

func (i *Issuer) sign(accountID string, kind Kind, ttl time.Duration) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		AccountID: accountID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, claims, nil
}

// Parse verifies the signature, issuer and expiry of a token and returns its
// claims. It does not consult the registry.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.ID == "" || claims.AccountID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
