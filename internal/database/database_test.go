// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tomtom215/sentinel/internal/config"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type tableInit struct {
	db    *DB
	table string
	err   error
}

func (ti *tableInit) InitSchema(ctx context.Context) error {
	if ti.err != nil {
		return ti.err
	}
	_, err := ti.db.Conn().ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+ti.table+" (id INTEGER)")
	return err
}

func TestNew_InMemory(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if db.Path() != ":memory:" {
		t.Errorf("Path = %q", db.Path())
	}
}

func TestNew_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sentinel.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// Closing twice is a no-op.
	if err := db.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestInitSchemas(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InitSchemas(ctx, &tableInit{db: db, table: "a"}, &tableInit{db: db, table: "b"}); err != nil {
		t.Fatalf("InitSchemas failed: %v", err)
	}
	for _, table := range []string{"a", "b"} {
		if _, err := db.Conn().ExecContext(ctx, "INSERT INTO "+table+" VALUES (1)"); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	boom := errors.New("boom")
	if err := db.InitSchemas(ctx, &tableInit{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestPingNilConn(t *testing.T) {
	db := &DB{}
	if err := db.Ping(context.Background()); err == nil {
		t.Error("expected error for nil connection")
	}
}
