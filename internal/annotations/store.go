// Package annotations owns the in-memory annotation collection and the pending edit session.
package annotations

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jd-annotator/internal/types"
)

// Draft is the input to Create.
type Draft struct {
	Target types.Target
	types.Dimensions

	StarIDs           []string
	ReframeNote       string
	StrategicNote     string
	SuggestedKeywords []string

	Source         types.Source
	Status         types.Status
	OriginalValues *types.OriginalValues
}

// Patch holds the fields Update merges. Nil fields are left untouched.
// Target.OriginalText is deliberately absent: it is fixed at creation.
type Patch struct {
	Text              *string
	Dimensions        *types.Dimensions
	StarIDs           *[]string
	ReframeNote       *string
	StrategicNote     *string
	SuggestedKeywords *[]string
	IsActive          *bool
	Status            *types.Status
	FeedbackCaptured  *bool
}

// Store is an ordered collection of annotations keyed by id.
// Insertion order is significant: the highlighter uses it as the overlap tie-break.
// Store is not safe for concurrent use; the engine serializes access.
type Store struct {
	items []*types.Annotation
	index map[string]int
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		index: make(map[string]int),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store contents with annotations, preserving their ids and order.
func (s *Store) Load(annotations []types.Annotation) error {
	items := make([]*types.Annotation, 0, len(annotations))
	index := make(map[string]int, len(annotations))
	for i := range annotations {
		a := annotations[i].Clone()
		if a.ID == "" {
			return &ValidationError{Field: "id", Message: fmt.Sprintf("annotation %d has no id", i)}
		}
		if _, dup := index[a.ID]; dup {
			return &ValidationError{Field: "id", Message: "duplicate id " + a.ID}
		}
		index[a.ID] = len(items)
		items = append(items, a)
	}
	s.items = items
	s.index = index
	return nil
}

// Create stores a new annotation built from draft and returns a copy of it.
func (s *Store) Create(draft Draft) (*types.Annotation, error) {
	text := strings.TrimSpace(draft.Target.Text)
	if len(text) < types.MinTargetTextLength {
		return nil, &ValidationError{
			Field:   "target.text",
			Message: fmt.Sprintf("must be at least %d characters", types.MinTargetTextLength),
		}
	}

	target := draft.Target
	if target.OriginalText == "" {
		target.OriginalText = target.Text
	}
	// Offsets cover the located text. A target without offsets is taken to start at 0.
	switch span := len(target.OriginalText); {
	case target.CharStart == 0 && target.CharEnd == 0:
		target.CharEnd = span
	case target.CharStart < 0 || target.CharEnd-target.CharStart != span:
		return nil, &ValidationError{
			Field:   "target.char_end",
			Message: fmt.Sprintf("offsets [%d, %d) do not cover the %d-byte target text", target.CharStart, target.CharEnd, span),
		}
	}

	source := draft.Source
	if source == "" {
		source = types.SourceManual
	}
	status := draft.Status
	if status == "" {
		if source == types.SourceAutoGenerated {
			status = types.StatusNeedsReview
		} else {
			status = types.StatusApproved
		}
	}

	now := s.now()
	a := &types.Annotation{
		ID:                s.newID(),
		Target:            target,
		Dimensions:        draft.Dimensions,
		StarIDs:           slices.Clone(draft.StarIDs),
		ReframeNote:       draft.ReframeNote,
		StrategicNote:     draft.StrategicNote,
		SuggestedKeywords: slices.Clone(draft.SuggestedKeywords),
		IsActive:          true,
		Status:            status,
		Source:            source,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if source == types.SourceAutoGenerated {
		if draft.OriginalValues != nil {
			ov := *draft.OriginalValues
			a.OriginalValues = &ov
		} else {
			a.OriginalValues = &types.OriginalValues{Dimensions: draft.Dimensions}
		}
	}

	if _, taken := s.index[a.ID]; taken {
		return nil, fmt.Errorf("id generator returned existing id %s", a.ID)
	}
	s.index[a.ID] = len(s.items)
	s.items = append(s.items, a)
	return a.Clone(), nil
}

// Get returns a copy of the annotation with id.
func (s *Store) Get(id string) (*types.Annotation, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, notFound(id)
	}
	return s.items[i].Clone(), nil
}

// Update merges patch into the annotation with id and bumps UpdatedAt.
func (s *Store) Update(id string, patch Patch) (*types.Annotation, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, notFound(id)
	}
	a := s.items[i]

	if patch.Text != nil {
		a.Target.Text = *patch.Text
	}
	if patch.Dimensions != nil {
		a.Dimensions = *patch.Dimensions
	}
	if patch.StarIDs != nil {
		a.StarIDs = slices.Clone(*patch.StarIDs)
	}
	if patch.ReframeNote != nil {
		a.ReframeNote = *patch.ReframeNote
	}
	if patch.StrategicNote != nil {
		a.StrategicNote = *patch.StrategicNote
	}
	if patch.SuggestedKeywords != nil {
		a.SuggestedKeywords = slices.Clone(*patch.SuggestedKeywords)
	}
	if patch.IsActive != nil {
		a.IsActive = *patch.IsActive
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.FeedbackCaptured != nil {
		a.FeedbackCaptured = *patch.FeedbackCaptured
	}
	a.UpdatedAt = s.now()

	return a.Clone(), nil
}

// Delete removes the annotation with id, returning it and the position it held.
func (s *Store) Delete(id string) (*types.Annotation, int, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, -1, notFound(id)
	}
	removed := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	s.reindex(i)
	return removed, i, nil
}

// Remove deletes the annotation with id without returning it.
func (s *Store) Remove(id string) error {
	_, _, err := s.Delete(id)
	return err
}

// Insert places a verbatim copy of a at position, clamped to the current length.
// It is used to replay history and rejects ids already present.
func (s *Store) Insert(position int, a *types.Annotation) error {
	if a == nil || a.ID == "" {
		return &ValidationError{Field: "id", Message: "annotation has no id"}
	}
	if _, exists := s.index[a.ID]; exists {
		return fmt.Errorf("annotation %s already exists", a.ID)
	}
	position = max(0, min(position, len(s.items)))
	s.items = slices.Insert(s.items, position, a.Clone())
	s.reindex(position)
	return nil
}

// Replace overwrites the stored annotation having a.ID with a verbatim copy of a.
func (s *Store) Replace(a *types.Annotation) error {
	i, ok := s.index[a.ID]
	if !ok {
		return notFound(a.ID)
	}
	s.items[i] = a.Clone()
	return nil
}

// All returns copies of every annotation in insertion order.
func (s *Store) All() []types.Annotation {
	out := make([]types.Annotation, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, *a.Clone())
	}
	return out
}

// Active returns copies of the active annotations in insertion order.
func (s *Store) Active() []types.Annotation {
	out := make([]types.Annotation, 0, len(s.items))
	for _, a := range s.items {
		if a.IsActive {
			out = append(out, *a.Clone())
		}
	}
	return out
}

// Len returns the number of stored annotations.
func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) reindex(from int) {
	for i := from; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
	for id, i := range s.index {
		if i >= len(s.items) || s.items[i].ID != id {
			delete(s.index, id)
		}
	}
}
