package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mohammad-safakhou/jobagent/internal/jobs"
)

// Store persists application attempts in a local embedded database so the
// agent never applies to the same posting twice across sessions.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  url TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  outcome TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS rejections (
  url TEXT PRIMARY KEY,
  reason TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
`

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Attempt is one recorded application attempt.
type Attempt struct {
	ID        string
	URL       string
	Title     string
	Company   string
	Location  string
	Outcome   jobs.Outcome
	Reason    string
	CreatedAt time.Time
}

// RecordAttempt stores the terminal outcome for a posting URL. A repeat
// record for the same URL overwrites the previous outcome; the latest
// session wins.
func (s *Store) RecordAttempt(ctx context.Context, posting jobs.Posting, outcome jobs.Outcome, reason string) error {
	if posting.URL == "" {
		return errors.New("posting url is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, url, title, company, location, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET outcome = excluded.outcome, reason = excluded.reason, created_at = excluded.created_at`,
		uuid.NewString(), posting.URL, posting.Title, posting.Company, posting.Location,
		string(outcome), reason, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// WasAttempted reports whether the posting URL already has a recorded
// attempt.
func (s *Store) WasAttempted(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM attempts WHERE url = ?`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query attempts: %w", err)
	}
	return true, nil
}

// GetAttempt returns the recorded attempt for a URL, or sql.ErrNoRows.
func (s *Store) GetAttempt(ctx context.Context, url string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, company, location, outcome, reason, created_at FROM attempts WHERE url = ?`, url)
	var a Attempt
	var outcome string
	var createdMs int64
	if err := row.Scan(&a.ID, &a.URL, &a.Title, &a.Company, &a.Location, &outcome, &a.Reason, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, sql.ErrNoRows
		}
		return Attempt{}, fmt.Errorf("failed to read attempt: %w", err)
	}
	a.Outcome = jobs.Outcome(outcome)
	a.CreatedAt = time.UnixMilli(createdMs)
	return a, nil
}

// RecordRejection stores a posting the relevance decision declined, with
// its reason, so the same posting is not re-evaluated next session.
func (s *Store) RecordRejection(ctx context.Context, url, reason string) error {
	if url == "" {
		return errors.New("posting url is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rejections (url, reason, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET reason = excluded.reason, created_at = excluded.created_at`,
		url, reason, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record rejection: %w", err)
	}
	return nil
}

// WasRejected reports whether the posting URL was previously declined.
func (s *Store) WasRejected(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rejections WHERE url = ?`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query rejections: %w", err)
	}
	return true, nil
}

// Counts returns aggregate attempt counts per outcome plus the rejection
// total under the "rejected" key.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var rejected int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rejections`).Scan(&rejected); err != nil {
		return nil, fmt.Errorf("failed to count rejections: %w", err)
	}
	counts["rejected"] = rejected
	return counts, nil
}
