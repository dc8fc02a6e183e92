// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/sentinel/internal/config"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func setupTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestService(t *testing.T) (*Service, *Issuer) {
	t.Helper()
	issuer, err := NewIssuer(&config.CredentialsConfig{
		JWTSecret:  testSecret,
		Issuer:     "sentinel-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return NewService(issuer, NewBadgerRegistry(setupTestBadger(t))), issuer
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewIssuer(&config.CredentialsConfig{}); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestIssuer_ParseRoundTrip(t *testing.T) {
	_, issuer := setupTestService(t)

	pair, err := issuer.IssuePair("acc-1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
		kind  Kind
	}{
		{"access", pair.AccessToken, KindAccess},
		{"refresh", pair.RefreshToken, KindRefresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := issuer.Parse(tt.token)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if c.AccountID != "acc-1" || c.Kind != tt.kind || c.ID == "" {
				t.Errorf("claims = %+v", c)
			}
		})
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh token should outlive the access token")
	}
}

func TestIssuer_ParseRejects(t *testing.T) {
	_, issuer := setupTestService(t)
	pair, _ := issuer.IssuePair("acc-1")

	other, _ := NewIssuer(&config.CredentialsConfig{JWTSecret: "another-secret-of-sufficient-length!!", Issuer: "sentinel-test", AccessTTL: time.Hour})
	forged, _ := other.IssuePair("acc-1")

	expired := *issuer
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.IssuePair("acc-1")

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": forged.AccessToken,
		"expired":      stale.AccessToken,
		"truncated":    pair.AccessToken[:len(pair.AccessToken)-4],
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Parse(token); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestBadgerRegistry_Lifecycle(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	reg := svc.Registry()

	if ok, _ := reg.HasAccess(ctx, "acc-1"); ok {
		t.Fatal("no credentials expected before issuing")
	}

	pair, err := svc.IssueSession(ctx, "acc-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	// A prefix-sharing account must not see acc-1's tokens.
	if _, err := svc.IssueSession(ctx, "acc-10"); err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if ok, err := reg.HasAccess(ctx, "acc-1"); err != nil || !ok {
		t.Errorf("HasAccess = %v, %v", ok, err)
	}
	if ok, err := reg.HasRefresh(ctx, "acc-1"); err != nil || !ok {
		t.Errorf("HasRefresh = %v, %v", ok, err)
	}

	claims, err := svc.Authenticate(ctx, pair.AccessToken, KindAccess)
	if err != nil || claims.AccountID != "acc-1" {
		t.Fatalf("Authenticate = %+v, %v", claims, err)
	}
	if rec, err := reg.Lookup(ctx, claims.ID); err != nil || rec.Kind != KindAccess {
		t.Errorf("Lookup = %+v, %v", rec, err)
	}
	if _, err := svc.Authenticate(ctx, pair.RefreshToken, KindAccess); !errors.Is(err, ErrWrongKind) {
		t.Errorf("refresh as access err = %v, want ErrWrongKind", err)
	}

	n, err := reg.RevokeAccount(ctx, "acc-1")
	if err != nil || n != 2 {
		t.Fatalf("RevokeAccount = %d, %v; want 2", n, err)
	}
	if ok, _ := reg.HasAccess(ctx, "acc-1"); ok {
		t.Error("access token survived revocation")
	}
	if _, err := svc.Authenticate(ctx, pair.AccessToken, KindAccess); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("revoked token err = %v, want ErrTokenNotFound", err)
	}
	if ok, _ := reg.HasAccess(ctx, "acc-10"); !ok {
		t.Error("revoking acc-1 must not touch acc-10")
	}

	if n, err := reg.RevokeAccount(ctx, "acc-1"); err != nil || n != 0 {
		t.Errorf("second RevokeAccount = %d, %v", n, err)
	}
}

func TestBadgerRegistry_StoreRejectsExpired(t *testing.T) {
	svc, issuer := setupTestService(t)

	past := *issuer
	past.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	pair, err := past.IssuePair("acc-1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if err := svc.Registry().StorePair(context.Background(), pair); err == nil {
		t.Error("expected error storing an expired token")
	}
}

func TestService_Refresh(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	pair, _ := svc.IssueSession(ctx, "acc-1")
	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if next.AccessToken == pair.AccessToken {
		t.Error("refresh should issue a new access token")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("reused refresh token err = %v, want ErrTokenNotFound", err)
	}
}

func TestBadgerRegistry_RunGCInMemory(t *testing.T) {
	reg := NewBadgerRegistry(setupTestBadger(t))
	if err := reg.RunGC(); err != nil {
		t.Errorf("RunGC on in-memory db = %v", err)
	}
}
