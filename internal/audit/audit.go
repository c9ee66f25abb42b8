// Package audit persists security events (authentication failures,
// rate-limit denials, origin denials) to SQLite so external monitoring can
// query them after the fact.
package audit

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Store manages the security-event log in SQLite. A nil *Store is valid
// and drops events, which is how test mode runs without a database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the event database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS security_events (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_kind_recorded
		ON security_events(kind, recorded_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Record inserts one security event. The caller's logger is the primary
// sink; the store is for after-the-fact queries, so a nil store is a
// silent no-op.
func (s *Store) Record(ctx context.Context, identity, kind, detail string) (string, error) {
	if s == nil {
		return "", nil
	}

	now := time.Now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events (id, identity, kind, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, identity, kind, detail, now.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to insert security event: %w", err)
	}
	return id, nil
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity, kind, detail, recorded_at
		FROM security_events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return events, nil
}

// CountSince reports how many events of one kind were recorded at or
// after the cutoff.
func (s *Store) CountSince(ctx context.Context, kind string, since time.Time) (int, error) {
	if s == nil {
		return 0, nil
	}

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM security_events
		WHERE kind = ? AND recorded_at >= ?
	`, kind, since.UTC().Format(time.RFC3339)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}
	return n, nil
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var event Event
	var recordedAt string

	if err := rows.Scan(&event.ID, &event.Identity, &event.Kind, &event.Detail, &recordedAt); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recorded_at timestamp: %w", err)
	}
	event.RecordedAt = ts
	return &event, nil
}
