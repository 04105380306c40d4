// Package types provides type definitions for the annotation data model shared across the jd-annotator system.
package types

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

// MinTargetTextLength is the shortest selection that can become an annotation.
const MinTargetTextLength = 3

// Relevance describes how strongly a JD span matches the candidate.
type Relevance string

// Relevance levels. The zero value means unset.
const (
	RelevanceCoreStrength      Relevance = "core_strength"
	RelevanceExtremelyRelevant Relevance = "extremely_relevant"
	RelevanceRelevant          Relevance = "relevant"
	RelevanceTangential        Relevance = "tangential"
	RelevanceGap               Relevance = "gap"
)

// RequirementType describes how strongly the JD requires a span.
type RequirementType string

// Requirement types. The zero value means unset.
const (
	RequirementMustHave     RequirementType = "must_have"
	RequirementNiceToHave   RequirementType = "nice_to_have"
	RequirementNeutral      RequirementType = "neutral"
	RequirementDisqualifier RequirementType = "disqualifier"
)

// Passion describes how much the candidate wants to do the work in a span.
type Passion string

// Passion levels. The zero value means unset.
const (
	PassionLoveIt   Passion = "love_it"
	PassionEnjoy    Passion = "enjoy"
	PassionNeutral  Passion = "neutral"
	PassionTolerate Passion = "tolerate"
	PassionAvoid    Passion = "avoid"
)

// Identity describes how much a span matches who the candidate is.
type Identity string

// Identity levels. The zero value means unset.
const (
	IdentityCore       Identity = "core_identity"
	IdentityStrong     Identity = "strong_identity"
	IdentityDeveloping Identity = "developing"
	IdentityPeripheral Identity = "peripheral"
	IdentityNot        Identity = "not_identity"
)

// Status is the review state of an annotation.
type Status string

// Review states.
const (
	StatusDraft       Status = "draft"
	StatusNeedsReview Status = "needs_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Source records who created an annotation.
type Source string

// Annotation sources.
const (
	SourceManual        Source = "manual"
	SourceAutoGenerated Source = "auto_generated"
)

// Target is the text span an annotation refers to.
type Target struct {
	Text         string `json:"text" validate:"required"`
	OriginalText string `json:"original_text"`
	Section      string `json:"section"`
	CharStart    int    `json:"char_start" validate:"gte=0"`
	CharEnd      int    `json:"char_end" validate:"gtefield=CharStart"`
}

// MatchText returns the text the highlighter should search for.
func (t Target) MatchText() string {
	if t.OriginalText != "" {
		return t.OriginalText
	}
	return t.Text
}

// Dimensions groups the four independent tagging dimensions.
type Dimensions struct {
	Relevance       Relevance       `json:"relevance" validate:"omitempty,oneof=core_strength extremely_relevant relevant tangential gap"`
	RequirementType RequirementType `json:"requirement_type" validate:"omitempty,oneof=must_have nice_to_have neutral disqualifier"`
	Passion         Passion         `json:"passion" validate:"omitempty,oneof=love_it enjoy neutral tolerate avoid"`
	Identity        Identity        `json:"identity" validate:"omitempty,oneof=core_identity strong_identity developing peripheral not_identity"`
}

// IsEmpty reports whether no dimension has a value.
func (d Dimensions) IsEmpty() bool {
	return d.Relevance == "" && d.RequirementType == "" && d.Passion == "" && d.Identity == ""
}

// OriginalValues is the pre-edit snapshot kept for auto-generated annotations.
type OriginalValues struct {
	Dimensions
	Confidence  float64 `json:"confidence"`
	MatchMethod string  `json:"match_method,omitempty"`
}

// Annotation is a tagged span of job description text.
type Annotation struct {
	ID     string `json:"id"`
	Target Target `json:"target"`
	Dimensions

	StarIDs           []string `json:"star_ids,omitempty"`
	ReframeNote       string   `json:"reframe_note,omitempty"`
	StrategicNote     string   `json:"strategic_note,omitempty"`
	SuggestedKeywords []string `json:"suggested_keywords,omitempty"`

	IsActive         bool            `json:"is_active"`
	Status           Status          `json:"status" validate:"oneof=draft needs_review approved rejected"`
	Source           Source          `json:"source" validate:"oneof=manual auto_generated"`
	OriginalValues   *OriginalValues `json:"original_values,omitempty"`
	FeedbackCaptured bool            `json:"feedback_captured,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can keep history independent of the live entity.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	c := *a
	c.StarIDs = slices.Clone(a.StarIDs)
	c.SuggestedKeywords = slices.Clone(a.SuggestedKeywords)
	if a.OriginalValues != nil {
		ov := *a.OriginalValues
		c.OriginalValues = &ov
	}
	return &c
}

// Validate validates the Annotation using the validator.
func (a *Annotation) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}

// MarshalJSON writes an unset relevance as null.
func (r Relevance) MarshalJSON() ([]byte, error) { return marshalEnum(string(r)) }

// UnmarshalJSON reads null as unset.
func (r *Relevance) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, (*string)(r)) }

// MarshalJSON writes an unset requirement type as null.
func (r RequirementType) MarshalJSON() ([]byte, error) { return marshalEnum(string(r)) }

// UnmarshalJSON reads null as unset.
func (r *RequirementType) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, (*string)(r)) }

// MarshalJSON writes an unset passion as null.
func (p Passion) MarshalJSON() ([]byte, error) { return marshalEnum(string(p)) }

// UnmarshalJSON reads null as unset.
func (p *Passion) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, (*string)(p)) }

// MarshalJSON writes an unset identity as null.
func (i Identity) MarshalJSON() ([]byte, error) { return marshalEnum(string(i)) }

// UnmarshalJSON reads null as unset.
func (i *Identity) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, (*string)(i)) }

func marshalEnum(v string) ([]byte, error) {
	if v == "" {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalEnum(b []byte, dst *string) error {
	if string(b) == "null" {
		*dst = ""
		return nil
	}
	return json.Unmarshal(b, dst)
}
