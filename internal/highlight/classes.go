package highlight

import (
	"fmt"

	"github.com/jonathan/jd-annotator/internal/types"
)

// MarkerClass is the class every highlight marker carries.
const MarkerClass = "annotation-highlight"

// unratedClass is used for annotations with no relevance set.
const unratedClass = "highlight-unrated"

// Style is the visual treatment for one relevance level.
type Style struct {
	Class string
	Label string
}

var relevanceClasses = map[types.Relevance]string{
	types.RelevanceCoreStrength:      "highlight-core",
	types.RelevanceExtremelyRelevant: "highlight-extremely-relevant",
	types.RelevanceRelevant:          "highlight-relevant",
	types.RelevanceTangential:        "highlight-tangential",
	types.RelevanceGap:               "highlight-gap",
}

// styles is built from the scoring weight table so labels and multipliers never drift apart.
var styles = buildStyles()

func buildStyles() map[types.Relevance]Style {
	out := make(map[types.Relevance]Style, len(types.RelevanceLevels))
	for _, level := range types.RelevanceLevels {
		out[level.Value] = Style{
			Class: relevanceClasses[level.Value],
			Label: fmt.Sprintf("%s (%.1fx)", level.Name, level.Weight),
		}
	}
	return out
}

// StyleFor returns the highlight style for a relevance value.
func StyleFor(r types.Relevance) Style {
	if s, ok := styles[r]; ok {
		return s
	}
	return Style{Class: unratedClass, Label: "Unrated"}
}

// Legend returns the styles strongest first, for rendering a key.
func Legend() []Style {
	out := make([]Style, 0, len(types.RelevanceLevels))
	for _, level := range types.RelevanceLevels {
		out = append(out, styles[level.Value])
	}
	return out
}
