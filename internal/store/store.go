// Package store keeps the journal of demo runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
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

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		vendor TEXT NOT NULL,
		flow TEXT NOT NULL,
		profile_id TEXT,
		profile_owned BOOLEAN,
		endpoint TEXT,
		outcome TEXT NOT NULL,
		failed_stage TEXT,
		error TEXT,
		final_url TEXT,
		title TEXT,
		screenshots TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts a finished run
func (s *Store) SaveRun(ctx context.Context, r *types.RunRecord) error {
	screenshots := r.Screenshots
	if screenshots == nil {
		screenshots = []string{}
	}
	screenshotsJSON, err := json.Marshal(screenshots)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, vendor, flow, profile_id, profile_owned, endpoint,
			outcome, failed_stage, error, final_url, title, screenshots,
			started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Vendor, r.Flow, r.ProfileID, r.ProfileOwned, r.Endpoint,
		string(r.Outcome), r.FailedStage, r.Error, r.FinalURL, r.Title, string(screenshotsJSON),
		r.StartedAt.UTC(), r.FinishedAt.UTC())

	return err
}

// RecentRuns returns the latest runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vendor, flow, profile_id, profile_owned, endpoint,
			outcome, failed_stage, error, final_url, title, screenshots,
			started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var r types.RunRecord
		var outcome, screenshotsJSON string

		err := rows.Scan(
			&r.ID, &r.Vendor, &r.Flow, &r.ProfileID, &r.ProfileOwned, &r.Endpoint,
			&outcome, &r.FailedStage, &r.Error, &r.FinalURL, &r.Title, &screenshotsJSON,
			&r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, err
		}

		r.Outcome = types.Outcome(outcome)
		if err := json.Unmarshal([]byte(screenshotsJSON), &r.Screenshots); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
