package schemas

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-annotator/internal/types"
)

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestValidateDocument_AcceptsEncodedDocument(t *testing.T) {
	html := "<p>Own the roadmap</p>"
	doc := types.NewDocument()
	doc.ProcessedJDHTML = &html
	doc.Annotations = []types.Annotation{
		{
			ID:         "a1",
			Target:     types.Target{Text: "Own the roadmap", OriginalText: "Own the roadmap", Section: "responsibilities", CharEnd: 15},
			Dimensions: types.Dimensions{Relevance: types.RelevanceCoreStrength},
			IsActive:   true,
			Status:     types.StatusApproved,
			Source:     types.SourceManual,
			CreatedAt:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:         "s1",
			Target:     types.Target{Text: "Mentor engineers"},
			Dimensions: types.Dimensions{Passion: types.PassionEnjoy},
			Status:     types.StatusNeedsReview,
			Source:     types.SourceAutoGenerated,
			OriginalValues: &types.OriginalValues{
				Dimensions: types.Dimensions{Passion: types.PassionEnjoy},
				Confidence: 0.72,
			},
		},
	}

	assert.NoError(t, ValidateDocument(marshal(t, doc)))
	assert.NoError(t, ValidateDocument(marshal(t, types.NewDocument())))
}

func TestValidateDocument_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		field string
	}{
		{
			name:  "missing annotations",
			json:  `{"annotation_version": 1}`,
			field: "(root)",
		},
		{
			name:  "unknown version",
			json:  `{"annotation_version": 2, "annotations": []}`,
			field: "annotation_version",
		},
		{
			name:  "unknown relevance",
			json:  `{"annotation_version": 1, "annotations": [{"id": "a1", "target": {"text": "Go"}, "is_active": true, "relevance": "somewhat"}]}`,
			field: "annotations.0.relevance",
		},
		{
			name:  "missing target text",
			json:  `{"annotation_version": 1, "annotations": [{"id": "a1", "target": {}, "is_active": true}]}`,
			field: "annotations.0.target",
		},
		{
			name:  "non-string timestamp",
			json:  `{"annotation_version": 1, "annotations": [{"id": "a1", "target": {"text": "Go"}, "is_active": true, "created_at": 1717200000}]}`,
			field: "annotations.0.created_at",
		},
		{
			name:  "threshold out of range",
			json:  `{"annotation_version": 1, "annotations": [], "settings": {"min_confidence_threshold": 1.5}}`,
			field: "settings.min_confidence_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument([]byte(tt.json))
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			fields := make([]string, 0, len(ve.Errors))
			for _, fe := range ve.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateDocument_MalformedJSON(t *testing.T) {
	err := ValidateDocument([]byte(`{ invalid json }`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Errors[0].Message, "malformed JSON")
}

func TestValidateFeedback(t *testing.T) {
	req := types.FeedbackRequest{
		JobID: "job-1",
		FeedbackPayload: types.FeedbackPayload{
			AnnotationID: "s1",
			Action:       types.FeedbackSave,
			FinalValues:  &types.Dimensions{Relevance: types.RelevanceGap},
			Target:       types.FeedbackTarget{Section: "qualifications", Text: "10 years of Rust"},
		},
	}
	assert.NoError(t, ValidateFeedback(marshal(t, req)))

	err := ValidateFeedback([]byte(`{"job_id": "job-1", "annotation_id": "s1", "action": "upvote", "target": {"text": "x"}}`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "action", ve.Errors[0].Field)

	assert.Error(t, ValidateFeedback([]byte(`{"annotation_id": "s1", "action": "save", "target": {"text": "x"}}`)))
}

func TestValidateDocumentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.json")
	require.NoError(t, os.WriteFile(path, marshal(t, types.NewDocument()), 0644))
	assert.NoError(t, ValidateDocumentFile(path))

	err := ValidateDocumentFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestSchemaFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}}
	}`), 0644))

	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"name": "test"}`), 0644))
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"name": 42}`), 0644))
	malformed := filepath.Join(dir, "malformed.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"name": `), 0644))

	sf, err := LoadSchemaFile(schemaPath)
	require.NoError(t, err)
	assert.Equal(t, schemaPath, sf.Path())
	assert.NoError(t, sf.ValidateFile(valid))

	var ve *ValidationError
	require.True(t, errors.As(sf.ValidateFile(invalid), &ve))
	assert.Equal(t, "name", ve.Errors[0].Field)

	require.True(t, errors.As(sf.ValidateFile(malformed), &ve))
	assert.Contains(t, ve.Errors[0].Message, "malformed JSON")

	err = sf.ValidateFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoadSchemaFile_Errors(t *testing.T) {
	dir := t.TempDir()
	var le *SchemaLoadError

	_, err := LoadSchemaFile(filepath.Join(dir, "nope.json"))
	assert.True(t, errors.As(err, &le))

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{ not a schema`), 0644))
	_, err = LoadSchemaFile(broken)
	require.True(t, errors.As(err, &le))
	assert.Contains(t, err.Error(), "invalid schema")
}
