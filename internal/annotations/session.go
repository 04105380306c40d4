package annotations

import (
	"slices"

	"github.com/jonathan/jd-annotator/internal/types"
)

// EditSession is the pending annotation open in the edit surface.
// Toggles change only the session until the owner commits it.
type EditSession struct {
	existingID string
	target     types.Target
	dims       types.Dimensions
	explicit   map[types.Dimension]bool
	populating bool

	StarIDs           []string
	ReframeNote       string
	StrategicNote     string
	SuggestedKeywords []string
}

// NewSession opens a session for an annotation that does not exist yet.
// Values in suggested are shown but not counted as explicit choices.
func NewSession(target types.Target, suggested types.Dimensions) *EditSession {
	return &EditSession{
		target:   target,
		dims:     suggested,
		explicit: make(map[types.Dimension]bool),
	}
}

// EditExisting opens a session populated from a stored annotation.
// Every value the annotation already has counts as explicitly chosen.
func EditExisting(a *types.Annotation) *EditSession {
	s := &EditSession{
		existingID: a.ID,
		target:     a.Target,
		explicit:   make(map[types.Dimension]bool),
	}

	s.populating = true
	for _, dim := range types.AllDimensions {
		if v := a.Dimensions.Get(dim); v != "" {
			s.Toggle(dim, v)
		}
	}
	s.populating = false

	s.StarIDs = slices.Clone(a.StarIDs)
	s.ReframeNote = a.ReframeNote
	s.StrategicNote = a.StrategicNote
	s.SuggestedKeywords = slices.Clone(a.SuggestedKeywords)
	return s
}

// Toggle flips dim to value. Toggling the value that is already explicitly set
// clears both the value and its explicit flag; anything else sets both.
func (s *EditSession) Toggle(dim types.Dimension, value string) {
	if s.dims.Get(dim) == value && s.explicit[dim] {
		s.dims.Set(dim, "")
		delete(s.explicit, dim)
		return
	}
	s.dims.Set(dim, value)
	s.explicit[dim] = true
}

// ShouldAutoDelete reports whether the edited annotation must be deleted because
// every dimension has been cleared. New annotations and population never qualify.
func (s *EditSession) ShouldAutoDelete() bool {
	return s.existingID != "" && !s.populating && s.dims.IsEmpty()
}

// Complete reports whether at least one dimension was explicitly chosen.
func (s *EditSession) Complete() bool {
	for dim, set := range s.explicit {
		if set && s.dims.Get(dim) != "" {
			return true
		}
	}
	return false
}

// Explicit reports whether dim was explicitly chosen in this session.
func (s *EditSession) Explicit(dim types.Dimension) bool {
	return s.explicit[dim]
}

// ExistingID returns the id being edited, or "" for a new annotation.
func (s *EditSession) ExistingID() string {
	return s.existingID
}

// IsNew reports whether the session will create an annotation on commit.
func (s *EditSession) IsNew() bool {
	return s.existingID == ""
}

// Dimensions returns the pending dimension values.
func (s *EditSession) Dimensions() types.Dimensions {
	return s.dims
}

// Target returns the span being annotated.
func (s *EditSession) Target() types.Target {
	return s.target
}

// SetText edits the display text. The original text used for highlighting is kept.
func (s *EditSession) SetText(text string) {
	if s.target.OriginalText == "" {
		s.target.OriginalText = s.target.Text
	}
	s.target.Text = text
}

// Draft converts a new-annotation session into store input.
func (s *EditSession) Draft() Draft {
	return Draft{
		Target:            s.target,
		Dimensions:        s.dims,
		StarIDs:           slices.Clone(s.StarIDs),
		ReframeNote:       s.ReframeNote,
		StrategicNote:     s.StrategicNote,
		SuggestedKeywords: slices.Clone(s.SuggestedKeywords),
		Source:            types.SourceManual,
	}
}

// Patch converts an edit session into store input.
func (s *EditSession) Patch() Patch {
	text := s.target.Text
	dims := s.dims
	stars := slices.Clone(s.StarIDs)
	keywords := slices.Clone(s.SuggestedKeywords)
	reframe := s.ReframeNote
	strategic := s.StrategicNote
	return Patch{
		Text:              &text,
		Dimensions:        &dims,
		StarIDs:           &stars,
		ReframeNote:       &reframe,
		StrategicNote:     &strategic,
		SuggestedKeywords: &keywords,
	}
}
