// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists download attempts across batches in a
// SQLite database, so reruns can skip citations that already
// succeeded.
package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scholar-fetch/pkg/types"
)

const dbFile = "history.db"

// Attempt is one recorded download attempt.
type Attempt struct {
	Ordinal    int
	Citation   string
	Status     types.AttemptStatus
	Reason     string
	BatchStart int
	RecordedAt time.Time
}

// Store manages the attempt history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates outputDir/history.db and ensures the schema
// exists.
func Open(outputDir string) (*Store, error) {
	dbPath := filepath.Join(outputDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			ordinal INTEGER NOT NULL,
			citation TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			batch_start INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_citation ON attempts(citation)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends one attempt to the history.
func (s *Store) Record(rec types.DownloadRecord, batchStart int) error {
	reason := rec.Reason
	if reason == "" {
		reason = rec.Error
	}
	_, err := s.db.Exec(
		`INSERT INTO attempts (ordinal, citation, status, reason, batch_start, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Ordinal, rec.Citation, string(rec.Status), reason, batchStart,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// Succeeded reports whether a citation has a success record.
func (s *Store) Succeeded(cite string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT count(*) FROM attempts WHERE citation = ? AND status = ?`,
		cite, string(types.StatusSuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("querying history: %w", err)
	}
	return count > 0, nil
}

// List returns recorded attempts, most recent first, capped at limit
// (all attempts when limit <= 0).
func (s *Store) List(limit int) ([]Attempt, error) {
	query := `SELECT ordinal, citation, status, reason, batch_start, recorded_at
	          FROM attempts ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a        Attempt
			status   string
			reason   sql.NullString
			recorded string
		)
		if err := rows.Scan(&a.Ordinal, &a.Citation, &status, &reason, &a.BatchStart, &recorded); err != nil {
			return nil, fmt.Errorf("scanning attempt row: %w", err)
		}
		a.Status = types.AttemptStatus(status)
		a.Reason = reason.String
		if t, parseErr := time.Parse(time.RFC3339, recorded); parseErr == nil {
			a.RecordedAt = t
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
