package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jd-annotator/internal/types"
)

// FeedbackRecord represents a stored feedback capture
type FeedbackRecord struct {
	ID           uuid.UUID             `json:"id"`
	JobID        string                `json:"job_id"`
	AnnotationID string                `json:"annotation_id"`
	Action       types.FeedbackAction  `json:"action"`
	Payload      types.FeedbackPayload `json:"payload"`
	CreatedAt    time.Time             `json:"created_at"`
}
