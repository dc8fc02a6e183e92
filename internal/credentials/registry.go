// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/logging"
)

// Key layout. Account ids may contain ':' so the index uses '/'.
const (
	tokenKeyPrefix   = "cred:"
	accountKeyPrefix = "cred_account/"
)

// Record is the registry entry for one live token.
type Record struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Kind      Kind      `json:"kind"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OpenBadger opens the credential database. With inMemory set, path is
// ignored and nothing is persisted.
func OpenBadger(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for credentials: %w", err)
	}
	return db, nil
}

// BadgerRegistry stores live tokens in BadgerDB. Entries carry a TTL equal to
// the token's remaining lifetime, so expired tokens disappear on their own.
type BadgerRegistry struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerRegistry creates a registry on an open database.
func NewBadgerRegistry(db *badger.DB) *BadgerRegistry {
	return &BadgerRegistry{db: db, now: time.Now}
}

func tokenKey(id string) []byte {
	return []byte(tokenKeyPrefix + id)
}

func accountPrefix(accountID string, kind Kind) []byte {
	return []byte(accountKeyPrefix + accountID + "/" + string(kind) + "/")
}

func accountKey(accountID string, kind Kind, id string) []byte {
	return append(accountPrefix(accountID, kind), id...)
}

// Store registers a token from its claims.
func (r *BadgerRegistry) Store(ctx context.Context, c *Claims) error {
	if c.ExpiresAt == nil {
		return fmt.Errorf("token %s has no expiry", c.ID)
	}
	ttl := c.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("token %s already expired", c.ID)
	}

	rec := Record{ID: c.ID, AccountID: c.AccountID, Kind: c.Kind, ExpiresAt: c.ExpiresAt.Time.UTC()}
	if c.IssuedAt != nil {
		rec.IssuedAt = c.IssuedAt.Time.UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(tokenKey(c.ID), data).WithTTL(ttl)); err != nil {
			return fmt.Errorf("set credential: %w", err)
		}
		if err := txn.SetEntry(badger.NewEntry(accountKey(c.AccountID, c.Kind, c.ID), []byte(c.ID)).WithTTL(ttl)); err != nil {
			return fmt.Errorf("set account mapping: %w", err)
		}
		return nil
	})
}

// StorePair registers both tokens of a freshly issued pair.
func (r *BadgerRegistry) StorePair(ctx context.Context, p *Pair) error {
	if err := r.Store(ctx, p.access); err != nil {
		return err
	}
	return r.Store(ctx, p.refresh)
}

// Lookup returns the registry record for a token id.
func (r *BadgerRegistry) Lookup(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("get credential: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes one token.
func (r *BadgerRegistry) Delete(ctx context.Context, accountID string, kind Kind, id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tokenKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err := txn.Delete(tokenKey(id)); err != nil {
			return fmt.Errorf("delete credential: %w", err)
		}
		if err := txn.Delete(accountKey(accountID, kind, id)); err != nil {
			return fmt.Errorf("delete account mapping: %w", err)
		}
		return nil
	})
}

func (r *BadgerRegistry) has(accountID string, kind Kind) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := accountPrefix(accountID, kind)
		it.Seek(prefix)
		found = it.ValidForPrefix(prefix)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("scan %s credentials: %w", kind, err)
	}
	return found, nil
}

// HasAccess reports whether the account holds a live access token.
func (r *BadgerRegistry) HasAccess(ctx context.Context, accountID string) (bool, error) {
	return r.has(accountID, KindAccess)
}

// HasRefresh reports whether the account holds a live refresh token.
func (r *BadgerRegistry) HasRefresh(ctx context.Context, accountID string) (bool, error) {
	return r.has(accountID, KindRefresh)
}

// RevokeAccount deletes every token of the account and returns how many
// were removed.
func (r *BadgerRegistry) RevokeAccount(ctx context.Context, accountID string) (int, error) {
	var ids []string
	var indexKeys [][]byte

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, kind := range []Kind{KindAccess, KindRefresh} {
			prefix := accountPrefix(accountID, kind)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				key := it.Item().KeyCopy(nil)
				indexKeys = append(indexKeys, key)
				ids = append(ids, string(key[len(prefix):]))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list account credentials: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		for i, id := range ids {
			if err := txn.Delete(tokenKey(id)); err != nil {
				return fmt.Errorf("delete credential: %w", err)
			}
			if err := txn.Delete(indexKeys[i]); err != nil {
				return fmt.Errorf("delete account mapping: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Info().Str("account_id", accountID).Int("count", len(ids)).Msg("Credentials revoked")
	return len(ids), nil
}

// RunGC runs value log garbage collection until there is nothing left to
// rewrite. It is a no-op for in-memory databases.
func (r *BadgerRegistry) RunGC() error {
	for {
		err := r.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return fmt.Errorf("credential value log gc: %w", err)
		}
	}
}
