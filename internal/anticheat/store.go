// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/sentinel/internal/logging"
)

// ViolationStore persists violations.
type ViolationStore interface {
	CreateViolation(ctx context.Context, v *Violation) error
	CountUnresolvedSince(ctx context.Context, accountID string, since time.Time) (int, error)
	SetViolationAction(ctx context.Context, id int64, action Action) error
	ListViolationsSince(ctx context.Context, accountID string, since time.Time) ([]Violation, error)
}

// BanStore persists bans. CreateBan must return ErrDuplicateActiveBan when
// another active ban holds the same (account, scope).
type BanStore interface {
	// FindActiveBan returns the newest active ban of one of types (any type
	// when empty) that has not expired at now, or nil.
	FindActiveBan(ctx context.Context, accountID string, types []BanType, now time.Time) (*Ban, error)
	CreateBan(ctx context.Context, b *Ban) error
	DeactivateExpiredBans(ctx context.Context, now time.Time) (int64, error)
	ListBans(ctx context.Context, accountID string) ([]Ban, error)
}

// UserStore reads and updates account records.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	SetUserBanned(ctx context.Context, accountID string, banned bool) error
	UpsertUser(ctx context.Context, u *User) error
}

// Store is everything the engine persists.
type Store interface {
	ViolationStore
	BanStore
	UserStore
}

// DuckDBStore implements Store on DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed store.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const (
	violationColumns = `id, account_id, username, violation_type, severity, detected_at,
		game_session, details, action_taken, resolved`

	banColumns = `id, account_id, username, ban_type, reason, banned_by, banned_at,
		expires_at, is_active, metadata`
)

// InitSchema creates the anticheat tables if they don't exist.
//
// DuckDB has no partial unique indexes, so "one active ban per account and
// scope" is a UNIQUE active_key column holding account_id|ban_type while the
// ban is active and NULL afterwards.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS anticheat_violations_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS anticheat_violations (
			id BIGINT PRIMARY KEY DEFAULT nextval('anticheat_violations_id_seq'),
			account_id TEXT NOT NULL,
			username TEXT NOT NULL,
			violation_type TEXT NOT NULL,
			severity INTEGER NOT NULL CHECK (severity BETWEEN 1 AND 10),
			detected_at TIMESTAMP NOT NULL,
			game_session TEXT,
			details JSON,
			action_taken TEXT NOT NULL DEFAULT 'none',
			resolved BOOLEAN NOT NULL DEFAULT false
		)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_account_detected ON anticheat_violations(account_id, detected_at)`,

		`CREATE SEQUENCE IF NOT EXISTS anticheat_bans_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS anticheat_bans (
			id BIGINT PRIMARY KEY DEFAULT nextval('anticheat_bans_id_seq'),
			account_id TEXT NOT NULL,
			username TEXT NOT NULL,
			ban_type TEXT NOT NULL,
			reason TEXT NOT NULL,
			banned_by TEXT NOT NULL,
			banned_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT true,
			active_key TEXT UNIQUE,
			metadata JSON
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bans_account ON anticheat_bans(account_id)`,

		// No secondary indexes: DuckDB rejects ON CONFLICT DO UPDATE on indexed columns.
		`CREATE TABLE IF NOT EXISTS anticheat_users (
			account_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			banned BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after anticheat schema initialization")
	}
	return nil
}

func activeKey(accountID string, t BanType) string {
	return accountID + "|" + string(t)
}

func marshalJSON(m map[string]interface{}) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// decodeJSONMap handles the shapes the driver returns for JSON columns.
func decodeJSONMap(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case string:
		return unmarshalMap([]byte(v))
	case []byte:
		return unmarshalMap(v)
	default:
		// Round-trip anything else the driver produced.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return unmarshalMap(b)
	}
}

func unmarshalMap(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanViolation(scanner rowScanner, v *Violation) error {
	var (
		violationType, action string
		gameSession           sql.NullString
		details               interface{}
	)
	if err := scanner.Scan(
		&v.ID,
		&v.AccountID,
		&v.Username,
		&violationType,
		&v.Severity,
		&v.DetectedAt,
		&gameSession,
		&details,
		&action,
		&v.Resolved,
	); err != nil {
		return err
	}

	v.Type = ViolationType(violationType)
	v.ActionTaken = Action(action)
	v.DetectedAt = v.DetectedAt.UTC()
	if gameSession.Valid {
		v.GameSession = gameSession.String
	}
	m, err := decodeJSONMap(details)
	if err != nil {
		return fmt.Errorf("decode violation details: %w", err)
	}
	v.Details = m
	return nil
}

func scanBan(scanner rowScanner, b *Ban) error {
	var (
		banType   string
		expiresAt sql.NullTime
		metadata  interface{}
	)
	if err := scanner.Scan(
		&b.ID,
		&b.AccountID,
		&b.Username,
		&banType,
		&b.Reason,
		&b.BannedBy,
		&b.BannedAt,
		&expiresAt,
		&b.IsActive,
		&metadata,
	); err != nil {
		return err
	}

	b.Type = BanType(banType)
	b.BannedAt = b.BannedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		b.ExpiresAt = &t
	}
	m, err := decodeJSONMap(metadata)
	if err != nil {
		return fmt.Errorf("decode ban metadata: %w", err)
	}
	b.Metadata = m
	return nil
}

// CreateViolation inserts v and sets its ID.
func (s *DuckDBStore) CreateViolation(ctx context.Context, v *Violation) error {
	details, err := marshalJSON(v.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal violation details: %w", err)
	}
	if v.ActionTaken == "" {
		v.ActionTaken = ActionNone
	}

	// RETURNING because DuckDB has no LastInsertId with sequences.
	query := `INSERT INTO anticheat_violations
		(account_id, username, violation_type, severity, detected_at, game_session, details, action_taken, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err = s.db.QueryRowContext(ctx, query,
		v.AccountID,
		v.Username,
		string(v.Type),
		v.Severity,
		v.DetectedAt.UTC(),
		nullableString(v.GameSession),
		details,
		string(v.ActionTaken),
		v.Resolved,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// CountUnresolvedSince counts the account's unresolved violations detected at
// or after since.
func (s *DuckDBStore) CountUnresolvedSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM anticheat_violations
		 WHERE account_id = ? AND resolved = false AND detected_at >= ?`,
		accountID, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}
	return n, nil
}

// SetViolationAction records the action taken for a violation.
func (s *DuckDBStore) SetViolationAction(ctx context.Context, id int64, action Action) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE anticheat_violations SET action_taken = ? WHERE id = ?`, string(action), id)
	if err != nil {
		return fmt.Errorf("failed to update violation action: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("violation %d not found", id)
	}
	return nil
}

// ListViolationsSince returns the account's violations detected at or after
// since, newest first.
func (s *DuckDBStore) ListViolationsSince(ctx context.Context, accountID string, since time.Time) ([]Violation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+violationColumns+` FROM anticheat_violations
		 WHERE account_id = ? AND detected_at >= ?
		 ORDER BY detected_at DESC, id DESC`,
		accountID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := scanViolation(rows, &v); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindActiveBan implements BanStore.
func (s *DuckDBStore) FindActiveBan(ctx context.Context, accountID string, types []BanType, now time.Time) (*Ban, error) {
	query := `SELECT ` + banColumns + ` FROM anticheat_bans
		WHERE account_id = ? AND is_active = true AND (expires_at IS NULL OR expires_at > ?)`
	args := []interface{}{accountID, now.UTC()}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND ban_type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY banned_at DESC, id DESC LIMIT 1`

	var b Ban
	if err := scanBan(s.db.QueryRowContext(ctx, query, args...), &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active ban: %w", err)
	}
	return &b, nil
}

// CreateBan inserts b as an active ban and sets its ID. Expired bans still
// holding the same slot are released first.
func (s *DuckDBStore) CreateBan(ctx context.Context, b *Ban) error {
	metadata, err := marshalJSON(b.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ban metadata: %w", err)
	}
	key := activeKey(b.AccountID, b.Type)

	// Separate statement: DuckDB checks unique constraints eagerly within one
	// transaction, so releasing and re-taking a key together would conflict.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE anticheat_bans SET is_active = false, active_key = NULL
		 WHERE active_key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		key, b.BannedAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActiveBan
		}
		return fmt.Errorf("failed to release expired ban: %w", err)
	}

	query := `INSERT INTO anticheat_bans
		(account_id, username, ban_type, reason, banned_by, banned_at, expires_at, is_active, active_key, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, true, ?, ?)
		RETURNING id`

	err = s.db.QueryRowContext(ctx, query,
		b.AccountID,
		b.Username,
		string(b.Type),
		b.Reason,
		b.BannedBy,
		b.BannedAt.UTC(),
		nullableTime(b.ExpiresAt),
		key,
		metadata,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActiveBan
		}
		return fmt.Errorf("failed to insert ban: %w", err)
	}
	b.IsActive = true
	return nil
}

// DeactivateExpiredBans deactivates every active ban with a non-null expiry
// at or before now, in one statement.
func (s *DuckDBStore) DeactivateExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE anticheat_bans SET is_active = false, active_key = NULL
		 WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired bans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// ListBans returns every ban for the account, newest first.
func (s *DuckDBStore) ListBans(ctx context.Context, accountID string) ([]Ban, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+banColumns+` FROM anticheat_bans WHERE account_id = ? ORDER BY banned_at DESC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bans: %w", err)
	}
	defer rows.Close()

	var out []Ban
	for rows.Next() {
		var b Ban
		if err := scanBan(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FindUserByUsername returns the user with an exact username match.
func (s *DuckDBStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, username, display_name, banned, updated_at
		 FROM anticheat_users WHERE username = ? LIMIT 1`,
		username,
	).Scan(&u.AccountID, &u.Username, &u.DisplayName, &u.Banned, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// SetUserBanned sets the account's banned flag.
func (s *DuckDBStore) SetUserBanned(ctx context.Context, accountID string, banned bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE anticheat_users SET banned = ?, updated_at = ? WHERE account_id = ?`,
		banned, time.Now().UTC(), accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpsertUser creates or updates the user's names. The banned flag of an
// existing user is kept.
func (s *DuckDBStore) UpsertUser(ctx context.Context, u *User) error {
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anticheat_users (account_id, username, display_name, banned, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			updated_at = EXCLUDED.updated_at`,
		u.AccountID, u.Username, u.DisplayName, u.Banned, u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
