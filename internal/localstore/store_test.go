package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-annotator/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "annotations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadAnnotations_MissingJob(t *testing.T) {
	s := openTestStore(t)

	doc, err := s.LoadAnnotations(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSaveAndLoadAnnotations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := types.NewDocument()
	doc.Annotations = []types.Annotation{{
		ID:         "a1",
		Target:     types.Target{Text: "Own the roadmap", Section: "responsibilities", CharStart: 0, CharEnd: 15},
		Dimensions: types.Dimensions{Relevance: types.RelevanceCoreStrength, Passion: types.PassionLoveIt},
		IsActive:   true,
		Status:     types.StatusApproved,
		Source:     types.SourceManual,
	}}
	require.NoError(t, s.SaveAnnotations(ctx, "job-1", doc))

	got, err := s.LoadAnnotations(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Annotations, 1)
	assert.Equal(t, doc.Annotations[0].Dimensions, got.Annotations[0].Dimensions)
	assert.Equal(t, doc.Settings, got.Settings)

	doc.Annotations = []types.Annotation{}
	require.NoError(t, s.SaveAnnotations(ctx, "job-1", doc))
	got, err = s.LoadAnnotations(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, got.Annotations)
}

func TestFeedback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CaptureFeedback(ctx, "job-1", types.FeedbackPayload{
		AnnotationID: "s1",
		Action:       types.FeedbackSave,
		FinalValues:  &types.Dimensions{Relevance: types.RelevanceGap},
		Target:       types.FeedbackTarget{Text: "10 years of Rust"},
	}))
	require.NoError(t, s.CaptureFeedback(ctx, "job-1", types.FeedbackPayload{
		AnnotationID: "s2",
		Action:       types.FeedbackDelete,
		Target:       types.FeedbackTarget{Text: "Kubernetes"},
	}))
	require.NoError(t, s.CaptureFeedback(ctx, "job-2", types.FeedbackPayload{AnnotationID: "x", Action: types.FeedbackSave}))

	got, err := s.ListFeedback(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].AnnotationID)
	assert.Equal(t, types.RelevanceGap, got[0].FinalValues.Relevance)
	assert.Equal(t, types.FeedbackDelete, got[1].Action)
	assert.Nil(t, got[1].FinalValues)
}

func TestJobs_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.SaveAnnotations(ctx, "older", types.NewDocument()))
	now = now.Add(time.Minute)
	require.NoError(t, s.SaveAnnotations(ctx, "newer", types.NewDocument()))

	jobs, err := s.Jobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, jobs)
}
