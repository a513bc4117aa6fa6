// Package history journals watchdog starvation events. The journal is
// write-mostly: nothing in it feeds back into watchdog state, it exists
// so an operator can ask "what starved, and when" after the fact.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Event is one recorded bark.
type Event struct {
	ID        int64
	Dog       string
	Kind      string
	Recovered bool
	BarkedAt  time.Time
}

// Store is a SQLite-backed bark journal.
type Store struct{ db *sql.DB }

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open opens (and if needed creates) the journal at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// RecordBark journals one starvation. kind names the watchdog policy
// ("time" or "event"); recovered reports whether a recovery action ran.
func (s *Store) RecordBark(ctx context.Context, dog, kind string, recovered bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO barks (dog, kind, recovered, barked_at) VALUES (?, ?, ?, ?)`,
		dog, kind, recovered, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record bark: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dog, kind, recovered, barked_at FROM barks ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query barks: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var at string
		if err := rows.Scan(&e.ID, &e.Dog, &e.Kind, &e.Recovered, &at); err != nil {
			return nil, fmt.Errorf("scan bark: %w", err)
		}
		e.BarkedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse bark timestamp: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ping verifies the journal is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
