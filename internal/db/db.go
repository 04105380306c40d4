// Package db provides PostgreSQL storage for annotation documents and suggestion feedback.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/jd-annotator/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// EnsureSchema creates the annotation tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetAnnotations retrieves the annotation document for a job.
// Returns nil, nil when the job has no saved document.
func (db *DB) GetAnnotations(ctx context.Context, jobID string) (*types.Document, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT document FROM job_annotations WHERE job_id = $1`,
		jobID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get annotations for job %s: %w", jobID, err)
	}

	var doc types.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode annotations for job %s: %w", jobID, err)
	}
	return &doc, nil
}

// PutAnnotations replaces the annotation document for a job.
func (db *DB) PutAnnotations(ctx context.Context, jobID string, doc *types.Document) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO job_annotations (job_id, annotation_version, annotation_count, document)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id) DO UPDATE
		 SET annotation_version = $2, annotation_count = $3, document = $4, updated_at = NOW()`,
		jobID, doc.AnnotationVersion, len(doc.Annotations), content,
	)
	if err != nil {
		return fmt.Errorf("failed to save annotations for job %s: %w", jobID, err)
	}
	return nil
}

// DeleteAnnotations removes a job's annotation document. Feedback is kept.
func (db *DB) DeleteAnnotations(ctx context.Context, jobID string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM job_annotations WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete annotations for job %s: %w", jobID, err)
	}
	return nil
}

// InsertFeedback records one feedback capture and returns its id.
func (db *DB) InsertFeedback(ctx context.Context, req *types.FeedbackRequest) (uuid.UUID, error) {
	payload, err := json.Marshal(req.FeedbackPayload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal feedback: %w", err)
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO annotation_feedback (id, job_id, annotation_id, action, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, req.JobID, req.AnnotationID, string(req.Action), payload,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return id, nil
}

// ListFeedback retrieves feedback for a job, oldest first.
func (db *DB) ListFeedback(ctx context.Context, jobID string) ([]FeedbackRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, annotation_id, action, payload, created_at
		 FROM annotation_feedback WHERE job_id = $1 ORDER BY created_at, id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var records []FeedbackRecord
	for rows.Next() {
		var r FeedbackRecord
		var action string
		var payload []byte
		if err := rows.Scan(&r.ID, &r.JobID, &r.AnnotationID, &action, &payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		r.Action = types.FeedbackAction(action)
		if err := json.Unmarshal(payload, &r.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode feedback %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return records, nil
}

// FeedbackSummary counts feedback actions per job.
func (db *DB) FeedbackSummary(ctx context.Context, jobID string) (map[types.FeedbackAction]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT action, COUNT(*) FROM annotation_feedback WHERE job_id = $1 GROUP BY action`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}
	defer rows.Close()

	summary := make(map[types.FeedbackAction]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan feedback summary: %w", err)
		}
		summary[types.FeedbackAction(action)] = count
	}
	return summary, rows.Err()
}
