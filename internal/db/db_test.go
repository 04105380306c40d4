package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-annotator/internal/types"
)

func TestSchemaSQLIsEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS job_annotations")
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS annotation_feedback")
	assert.Contains(t, schemaSQL, "'manual_create'")
}

func TestFeedbackRecordJSON(t *testing.T) {
	id := uuid.MustParse("6f1c2d4e-1a2b-4c3d-8e9f-0a1b2c3d4e5f")
	rec := FeedbackRecord{
		ID:           id,
		JobID:        "job-1",
		AnnotationID: "s1",
		Action:       types.FeedbackDelete,
		Payload: types.FeedbackPayload{
			AnnotationID: "s1",
			Action:       types.FeedbackDelete,
			Target:       types.FeedbackTarget{Text: "Mentor engineers"},
		},
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id.String(), decoded["id"])
	assert.Equal(t, "delete", decoded["action"])
	assert.Equal(t, "job-1", decoded["job_id"])
}
