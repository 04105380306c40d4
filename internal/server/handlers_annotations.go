package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/jd-annotator/internal/schemas"
	"github.com/jonathan/jd-annotator/internal/scoring"
	"github.com/jonathan/jd-annotator/internal/types"
)

// maxBodyBytes caps request bodies. Documents embed the processed JD HTML.
const maxBodyBytes = 4 << 20

// SaveResponse is returned after a document is stored
type SaveResponse struct {
	JobID           string         `json:"job_id"`
	AnnotationCount int            `json:"annotation_count"`
	Scores          scoring.Result `json:"scores"`
	SavedAt         string         `json:"saved_at"`
}

// FeedbackResponse is returned after feedback is recorded
type FeedbackResponse struct {
	ID string `json:"id"`
}

// handleGetAnnotations returns the stored document for a job
func (s *Server) handleGetAnnotations(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	doc, err := s.store.GetAnnotations(r.Context(), jobID)
	if err != nil {
		log.Printf("Error loading annotations for job %s: %v", jobID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load annotations")
		return
	}
	if doc == nil {
		s.failure(w, &ErrNotFound{JobID: jobID})
		return
	}

	s.jsonResponse(w, http.StatusOK, doc)
}

// handlePutAnnotations replaces the stored document for a job
func (s *Server) handlePutAnnotations(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.failure(w, err)
		return
	}
	if err := schemas.ValidateDocument(body); err != nil {
		s.failure(w, err)
		return
	}

	var doc types.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		s.failure(w, &ErrValidation{Field: "(root)", Message: err.Error()})
		return
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		s.failure(w, err)
		return
	}

	if err := s.store.PutAnnotations(r.Context(), jobID, &doc); err != nil {
		log.Printf("Error saving annotations for job %s: %v", jobID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save annotations")
		return
	}

	resp := SaveResponse{
		JobID:           jobID,
		AnnotationCount: len(doc.Annotations),
		Scores:          scoring.Compute(doc.Annotations, s.targets),
		SavedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	s.events.publish(jobID, event{Name: "saved", Data: resp})
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGetScores returns coverage and boost for the stored document
func (s *Server) handleGetScores(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	doc, err := s.store.GetAnnotations(r.Context(), jobID)
	if err != nil {
		log.Printf("Error loading annotations for job %s: %v", jobID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load annotations")
		return
	}
	if doc == nil {
		doc = types.NewDocument()
	}

	s.jsonResponse(w, http.StatusOK, scoring.Compute(doc.Annotations, s.targets))
}

// handleFeedback records how a user changed a suggestion
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.failure(w, err)
		return
	}
	if err := schemas.ValidateFeedback(body); err != nil {
		s.failure(w, err)
		return
	}

	var req types.FeedbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.failure(w, &ErrValidation{Field: "(root)", Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, err)
		return
	}

	id, err := s.store.InsertFeedback(r.Context(), &req)
	if err != nil {
		log.Printf("Error recording feedback for annotation %s: %v", req.AnnotationID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to record feedback")
		return
	}

	log.Printf("[feedback] job=%s annotation=%s action=%s", req.JobID, req.AnnotationID, req.Action)
	s.events.publish(req.JobID, event{Name: "feedback", Data: req.FeedbackPayload})
	s.jsonResponse(w, http.StatusAccepted, FeedbackResponse{ID: id.String()})
}

// failure writes err with its mapped status and any field details.
func (s *Server) failure(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	details := errorDetails(err)
	if details == nil {
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Internal server error"
		}
		s.errorResponse(w, status, message)
		return
	}
	s.jsonResponse(w, status, map[string]any{
		"error":   fmt.Sprintf("%d validation error(s)", len(details)),
		"details": details,
	})
}
