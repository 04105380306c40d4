package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jd-annotator/internal/types"
)

func TestEditSession_ToggleSymmetry(t *testing.T) {
	s := NewSession(types.Target{Text: "Own the roadmap"}, types.Dimensions{})

	s.Toggle(types.DimensionRelevance, string(types.RelevanceGap))
	assert.Equal(t, types.RelevanceGap, s.Dimensions().Relevance)
	assert.True(t, s.Explicit(types.DimensionRelevance))

	s.Toggle(types.DimensionRelevance, string(types.RelevanceGap))
	assert.Equal(t, types.Relevance(""), s.Dimensions().Relevance)
	assert.False(t, s.Explicit(types.DimensionRelevance))
}

func TestEditSession_ToggleSuggestedValueMakesItExplicit(t *testing.T) {
	s := NewSession(types.Target{Text: "Own the roadmap"}, types.Dimensions{Relevance: types.RelevanceRelevant})
	assert.False(t, s.Complete(), "suggested values are not explicit choices")

	s.Toggle(types.DimensionRelevance, string(types.RelevanceRelevant))
	assert.Equal(t, types.RelevanceRelevant, s.Dimensions().Relevance)
	assert.True(t, s.Complete())
}

func TestEditSession_SwitchValue(t *testing.T) {
	s := NewSession(types.Target{Text: "Own the roadmap"}, types.Dimensions{})
	s.Toggle(types.DimensionPassion, string(types.PassionEnjoy))
	s.Toggle(types.DimensionPassion, string(types.PassionLoveIt))

	assert.Equal(t, types.PassionLoveIt, s.Dimensions().Passion)
	assert.True(t, s.Explicit(types.DimensionPassion))
}

func TestEditSession_AutoDelete(t *testing.T) {
	existing := &types.Annotation{
		ID:         "ann-1",
		Target:     types.Target{Text: "Own the roadmap"},
		Dimensions: types.Dimensions{Passion: types.PassionLoveIt},
	}

	tests := []struct {
		name    string
		session *EditSession
		toggle  func(*EditSession)
		want    bool
	}{
		{
			name:    "existing annotation cleared",
			session: EditExisting(existing),
			toggle: func(s *EditSession) {
				s.Toggle(types.DimensionPassion, string(types.PassionLoveIt))
			},
			want: true,
		},
		{
			name:    "existing annotation still tagged",
			session: EditExisting(existing),
			toggle: func(s *EditSession) {
				s.Toggle(types.DimensionPassion, string(types.PassionEnjoy))
			},
			want: false,
		},
		{
			name:    "new annotation cleared",
			session: NewSession(existing.Target, types.Dimensions{}),
			toggle: func(s *EditSession) {
				s.Toggle(types.DimensionPassion, string(types.PassionLoveIt))
				s.Toggle(types.DimensionPassion, string(types.PassionLoveIt))
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.toggle(tt.session)
			assert.Equal(t, tt.want, tt.session.ShouldAutoDelete())
		})
	}
}

func TestEditExisting_PopulatesWithoutClearing(t *testing.T) {
	existing := &types.Annotation{
		ID:     "ann-1",
		Target: types.Target{Text: "Own the roadmap", OriginalText: "Own the roadmap"},
		Dimensions: types.Dimensions{
			Relevance:       types.RelevanceCoreStrength,
			RequirementType: types.RequirementMustHave,
		},
		ReframeNote: "note",
	}

	s := EditExisting(existing)

	assert.Equal(t, existing.Dimensions, s.Dimensions())
	assert.True(t, s.Explicit(types.DimensionRelevance))
	assert.True(t, s.Explicit(types.DimensionRequirementType))
	assert.False(t, s.Explicit(types.DimensionPassion))
	assert.True(t, s.Complete())
	assert.False(t, s.ShouldAutoDelete())
	assert.Equal(t, "note", s.ReframeNote)
}

func TestEditSession_SetTextKeepsOriginal(t *testing.T) {
	s := NewSession(types.Target{Text: "Own the roadmap"}, types.Dimensions{})
	s.SetText("Owns roadmap")

	assert.Equal(t, "Owns roadmap", s.Target().Text)
	assert.Equal(t, "Own the roadmap", s.Target().OriginalText)
	assert.Equal(t, "Own the roadmap", s.Draft().Target.OriginalText)
}
