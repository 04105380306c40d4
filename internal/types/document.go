package types

import (
	"github.com/go-playground/validator/v10"
)

// DocumentVersion is the annotation_version written by this build.
const DocumentVersion = 1

// Settings holds per-job annotation display preferences.
type Settings struct {
	AutoHighlight          bool    `json:"auto_highlight"`
	ShowConfidence         bool    `json:"show_confidence"`
	MinConfidenceThreshold float64 `json:"min_confidence_threshold" validate:"gte=0,lte=1"`
}

// DefaultSettings returns the settings used for a job with no saved annotations.
func DefaultSettings() Settings {
	return Settings{
		AutoHighlight:          true,
		ShowConfidence:         true,
		MinConfidenceThreshold: 0.5,
	}
}

// Document is the persisted annotation set for one job, round-tripped as JSON.
type Document struct {
	AnnotationVersion int          `json:"annotation_version" validate:"eq=1"`
	ProcessedJDHTML   *string      `json:"processed_jd_html"`
	Annotations       []Annotation `json:"annotations" validate:"dive"`
	Settings          Settings     `json:"settings"`
}

// NewDocument returns an empty document with default settings.
func NewDocument() *Document {
	return &Document{
		AnnotationVersion: DocumentVersion,
		Annotations:       []Annotation{},
		Settings:          DefaultSettings(),
	}
}

// Normalize fills fields that documents written before the review workflow omit:
// a missing status reads as approved and a missing source as manual.
func (d *Document) Normalize() {
	if d.AnnotationVersion == 0 {
		d.AnnotationVersion = DocumentVersion
	}
	if d.Annotations == nil {
		d.Annotations = []Annotation{}
	}
	for i := range d.Annotations {
		a := &d.Annotations[i]
		if a.Status == "" {
			a.Status = StatusApproved
		}
		if a.Source == "" {
			a.Source = SourceManual
		}
	}
}

// Validate validates the Document using the validator.
func (d *Document) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}

// FeedbackAction is the kind of edit a feedback payload reports.
type FeedbackAction string

// Feedback actions.
const (
	FeedbackSave         FeedbackAction = "save"
	FeedbackDelete       FeedbackAction = "delete"
	FeedbackManualCreate FeedbackAction = "manual_create"
)

// FeedbackTarget identifies the annotated span in a feedback payload.
type FeedbackTarget struct {
	Section string `json:"section"`
	Text    string `json:"text"`
}

// FeedbackPayload reports how a user changed a suggestion so the suggester can learn from it.
type FeedbackPayload struct {
	AnnotationID   string          `json:"annotation_id" validate:"required"`
	Action         FeedbackAction  `json:"action" validate:"oneof=save delete manual_create"`
	OriginalValues *OriginalValues `json:"original_values,omitempty"`
	FinalValues    *Dimensions     `json:"final_values,omitempty"`
	Target         FeedbackTarget  `json:"target"`
}

// Validate validates the FeedbackPayload using the validator.
func (p *FeedbackPayload) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// NewFeedbackPayload builds the payload for an action on a.
func NewFeedbackPayload(a *Annotation, action FeedbackAction) FeedbackPayload {
	p := FeedbackPayload{
		AnnotationID: a.ID,
		Action:       action,
		Target:       FeedbackTarget{Section: a.Target.Section, Text: a.Target.Text},
	}
	if a.OriginalValues != nil {
		ov := *a.OriginalValues
		p.OriginalValues = &ov
	}
	if action != FeedbackDelete {
		final := a.Dimensions
		p.FinalValues = &final
	}
	return p
}

// FeedbackRequest is the wire body of a feedback capture: the payload tagged with its job.
type FeedbackRequest struct {
	JobID string `json:"job_id" validate:"required"`
	FeedbackPayload
}

// Validate validates the FeedbackRequest using the validator.
func (r *FeedbackRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
