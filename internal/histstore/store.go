// Package histstore keeps a local sqlite mirror of a user's token change
// history. The server history is append-only, so the mirror only ever gains
// rows; syncing resumes from the newest locally-known event.
package histstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/helioscope/skyportal/pkg/portalsdk"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the mirror database at dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertEntries stores entries, silently skipping any already present.
// Idempotent: re-syncing overlapping pages is safe.
func (s *Store) InsertEntries(ctx context.Context, entries []portalsdk.TokenChangeHistoryEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO token_history (
			username, token_key, token_type, token_name, parent, scopes,
			expires, actor, action, old_token_name, old_scopes, old_expires,
			ip_address, event_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		res, err := stmt.ExecContext(ctx,
			e.Username,
			e.Token,
			string(e.TokenType),
			optionalString(e.TokenName),
			optionalString(e.Parent),
			strings.Join(e.Scopes, " "),
			optionalInt(e.Expires),
			e.Actor,
			string(e.Action),
			optionalString(e.OldTokenName),
			joinOrNull(e.OldScopes),
			optionalInt(e.OldExpires),
			optionalString(e.IPAddress),
			e.EventTime,
		)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListFilters narrows a local history listing, mirroring the API's filter
// set.
type ListFilters struct {
	TokenType portalsdk.TokenType
	Token     string
	Since     time.Time
	Until     time.Time
	IPAddress string
	Limit     int
}

// List returns locally mirrored entries for username, newest first.
func (s *Store) List(ctx context.Context, username string, f ListFilters) ([]portalsdk.TokenChangeHistoryEntry, error) {
	query := `
		SELECT username, token_key, token_type, token_name, parent, scopes,
		       expires, actor, action, old_token_name, old_scopes, old_expires,
		       ip_address, event_time
		FROM token_history
		WHERE username = ?`
	args := []any{username}

	if f.TokenType != "" {
		query += " AND token_type = ?"
		args = append(args, string(f.TokenType))
	}
	if f.Token != "" {
		query += " AND token_key = ?"
		args = append(args, f.Token)
	}
	if !f.Since.IsZero() {
		query += " AND event_time >= ?"
		args = append(args, f.Since.Unix())
	}
	if !f.Until.IsZero() {
		query += " AND event_time <= ?"
		args = append(args, f.Until.Unix())
	}
	if f.IPAddress != "" {
		query += " AND ip_address = ?"
		args = append(args, f.IPAddress)
	}
	query += " ORDER BY event_time DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []portalsdk.TokenChangeHistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestEventTime returns the newest locally-known event time for username,
// or zero when nothing is mirrored yet.
func (s *Store) LatestEventTime(ctx context.Context, username string) (int64, error) {
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(event_time) FROM token_history WHERE username = ?`, username,
	).Scan(&latest)
	if err != nil {
		return 0, err
	}
	if !latest.Valid {
		return 0, nil
	}
	return latest.Int64, nil
}

func scanEntry(rows *sql.Rows) (portalsdk.TokenChangeHistoryEntry, error) {
	var (
		e            portalsdk.TokenChangeHistoryEntry
		tokenType    string
		action       string
		tokenName    sql.NullString
		parent       sql.NullString
		scopes       string
		expires      sql.NullInt64
		oldTokenName sql.NullString
		oldScopes    sql.NullString
		oldExpires   sql.NullInt64
		ipAddress    sql.NullString
	)
	err := rows.Scan(
		&e.Username, &e.Token, &tokenType, &tokenName, &parent, &scopes,
		&expires, &e.Actor, &action, &oldTokenName, &oldScopes, &oldExpires,
		&ipAddress, &e.EventTime,
	)
	if err != nil {
		return e, err
	}

	e.TokenType = portalsdk.TokenType(tokenType)
	e.Action = portalsdk.TokenAction(action)
	e.TokenName = nullStringPtr(tokenName)
	e.Parent = nullStringPtr(parent)
	e.Scopes = splitScopes(scopes)
	e.Expires = nullIntPtr(expires)
	e.OldTokenName = nullStringPtr(oldTokenName)
	if oldScopes.Valid {
		e.OldScopes = splitScopes(oldScopes.String)
	}
	e.OldExpires = nullIntPtr(oldExpires)
	e.IPAddress = nullStringPtr(ipAddress)
	return e, nil
}

func splitScopes(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func optionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optionalInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func joinOrNull(items []string) sql.NullString {
	if items == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(items, " "), Valid: true}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullIntPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
