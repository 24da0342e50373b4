// Package history records every search a session runs, accepted or rejected.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const timeLayout = "2006-01-02 15:04:05.000"

// Entry is one search attempt
type Entry struct {
	ID           int
	ProfileID    string
	ProfileName  string
	EntityType   string
	Filter       string
	ExecutedAt   time.Time
	Duration     time.Duration
	RecordCount  int
	Success      bool
	ErrorMessage string
}

// Options controls retention
type Options struct {
	// MaxEntries keeps only the newest entries; zero keeps everything
	MaxEntries int
	// SaveFailed also records rejected searches
	SaveFailed bool
}

// Store manages search history persistence
type Store struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

// NewStore creates a new history store
func NewStore(path string, opts Options) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// Create schema
	_, err = db.Exec(schemaSQL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, opts: opts, now: time.Now}, nil
}

// Add records a search attempt. Failed attempts are skipped unless
// SaveFailed is set.
func (s *Store) Add(ctx context.Context, entry Entry) error {
	if !entry.Success && !s.opts.SaveFailed {
		return nil
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history
		(profile_id, profile_name, entity_type, filter, executed_at, duration_ms, record_count, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ProfileID,
		entry.ProfileName,
		entry.EntityType,
		entry.Filter,
		entry.ExecutedAt.UTC().Format(timeLayout),
		entry.Duration.Milliseconds(),
		entry.RecordCount,
		entry.Success,
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}

	if s.opts.MaxEntries > 0 {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM search_history
			WHERE id NOT IN (
				SELECT id FROM search_history ORDER BY executed_at DESC, id DESC LIMIT ?
			)`, s.opts.MaxEntries)
		if err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}
	return nil
}

// GetRecent retrieves the most recent entries
func (s *Store) GetRecent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, profile_name, entity_type, filter, executed_at,
		       duration_ms, record_count, success, error_message
		FROM search_history
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// Search retrieves the most recent entries of profiles whose name contains term
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, profile_name, entity_type, filter, executed_at,
		       duration_ms, record_count, success, error_message
		FROM search_history
		WHERE profile_name LIKE ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, "%"+term+"%", limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMs int64
		var executedAt string

		err := rows.Scan(
			&e.ID,
			&e.ProfileID,
			&e.ProfileName,
			&e.EntityType,
			&e.Filter,
			&executedAt,
			&durationMs,
			&e.RecordCount,
			&e.Success,
			&e.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.ExecutedAt, _ = time.Parse(timeLayout, executedAt)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
