// Package localstore keeps annotation documents and feedback in a local SQLite file
// so the editor works without a backend.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonathan/jd-annotator/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_annotations (
    job_id     TEXT PRIMARY KEY,
    document   TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS annotation_feedback (
    id            TEXT PRIMARY KEY,
    job_id        TEXT NOT NULL,
    annotation_id TEXT NOT NULL,
    action        TEXT NOT NULL,
    payload       TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_annotation_feedback_job ON annotation_feedback (job_id, created_at);
`

// Store is a SQLite-backed persistence layer for one workstation.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at dsn. Use ":memory:" for a throwaway store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure local store (%s): %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create local store schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadAnnotations returns the saved document, or nil when the job has none.
func (s *Store) LoadAnnotations(ctx context.Context, jobID string) (*types.Document, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM job_annotations WHERE job_id = ?`, jobID,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load annotations for job %s: %w", jobID, err)
	}

	var doc types.Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode annotations for job %s: %w", jobID, err)
	}
	return &doc, nil
}

// SaveAnnotations replaces the job's document.
func (s *Store) SaveAnnotations(ctx context.Context, jobID string, doc *types.Document) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_annotations (job_id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (job_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		jobID, string(content), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save annotations for job %s: %w", jobID, err)
	}
	return nil
}

// CaptureFeedback records one feedback payload.
func (s *Store) CaptureFeedback(ctx context.Context, jobID string, payload types.FeedbackPayload) error {
	content, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO annotation_feedback (id, job_id, annotation_id, action, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), jobID, payload.AnnotationID, string(payload.Action), string(content), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record feedback for annotation %s: %w", payload.AnnotationID, err)
	}
	return nil
}

// ListFeedback returns the feedback captured for a job, oldest first.
func (s *Store) ListFeedback(ctx context.Context, jobID string) ([]types.FeedbackPayload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM annotation_feedback WHERE job_id = ? ORDER BY created_at, rowid`, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.FeedbackPayload
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		var p types.FeedbackPayload
		if err := json.Unmarshal([]byte(content), &p); err != nil {
			return nil, fmt.Errorf("failed to decode feedback: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Jobs lists the jobs that have a saved document, most recently saved first.
func (s *Store) Jobs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_id FROM job_annotations ORDER BY updated_at DESC, job_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, id)
	}
	return jobs, rows.Err()
}
