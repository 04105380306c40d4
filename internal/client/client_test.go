package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-annotator/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithLogger(log.New(io.Discard, "", 0))), srv
}

func TestLoadAnnotations(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/jobs/job-1/annotations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"annotation_version":1,"annotations":[{"id":"a1","target":{"text":"Own the roadmap"},"relevance":"core_strength","requirement_type":null,"passion":null,"identity":null,"is_active":true}],"settings":{"auto_highlight":true}}`))
	})

	doc, err := c.LoadAnnotations(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, doc.Annotations, 1)
	assert.Equal(t, "a1", doc.Annotations[0].ID)
	assert.Equal(t, types.RelevanceCoreStrength, doc.Annotations[0].Relevance)
	assert.Empty(t, doc.Annotations[0].Passion)
	assert.True(t, doc.Settings.AutoHighlight)
}

func TestLoadAnnotations_NotFoundIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no annotations for job"}`))
	})

	doc, err := c.LoadAnnotations(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSaveAnnotations(t *testing.T) {
	var got types.Document
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/jobs/job%2F1/annotations", r.URL.EscapedPath())
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	doc := types.NewDocument()
	doc.Annotations = []types.Annotation{{ID: "a1", Target: types.Target{Text: "Own the roadmap"}, IsActive: true}}
	require.NoError(t, c.SaveAnnotations(context.Background(), "job/1", doc))

	require.Len(t, got.Annotations, 1)
	assert.Equal(t, "a1", got.Annotations[0].ID)
	assert.Equal(t, types.DocumentVersion, got.AnnotationVersion)
}

func TestCaptureFeedback_SendsJobID(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/annotations/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	})

	err := c.CaptureFeedback(context.Background(), "job-1", types.FeedbackPayload{
		AnnotationID: "a1",
		Action:       types.FeedbackDelete,
		Target:       types.FeedbackTarget{Section: "responsibilities", Text: "Own the roadmap"},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, "a1", body["annotation_id"])
	assert.Equal(t, "delete", body["action"])
	assert.NotContains(t, body, "final_values")
}

func TestServerErrorIsTyped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"database unavailable"}`))
	})

	err := c.SaveAnnotations(context.Background(), "job-1", types.NewDocument())
	require.Error(t, err)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, http.MethodPut, apiErr.Method)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	c := New(srv.URL,
		WithBreaker(BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour, HalfOpenRequests: 1}),
		WithLogger(log.New(&logs, "", 0)),
	)

	for i := 0; i < 2; i++ {
		err := c.SaveAnnotations(context.Background(), "job-1", types.NewDocument())
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
	}
	assert.Equal(t, "open", c.BreakerState())

	err := c.SaveAnnotations(context.Background(), "job-1", types.NewDocument())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load(), "an open circuit does not reach the backend")
	assert.Contains(t, logs.String(), "[client] annotation-backend breaker closed -> open")
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"annotations[0].id is required"}`))
	})

	for i := 0; i < 5; i++ {
		err := c.SaveAnnotations(context.Background(), "job-1", types.NewDocument())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, "closed", c.BreakerState())
}
