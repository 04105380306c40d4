// Package highlight wraps annotated text spans of a rendered job description in highlight markers.
package highlight

import (
	"strings"

	"github.com/jonathan/jd-annotator/internal/types"
)

// Marker describes the highlight wrapper applied around one match.
type Marker struct {
	AnnotationID string
	Relevance    types.Relevance
	Class        string
	Label        string
}

// TextLeaf is a text node of a render surface.
type TextLeaf interface {
	Text() string
	// InMarker reports whether the leaf sits inside an applied highlight marker.
	InMarker() bool
	// Annotatable is false for leaves inside non-annotatable regions such as banners.
	Annotatable() bool
}

// RenderSurface is the content tree the highlighter operates on.
// Any UI layer can implement it; the algorithm only depends on these operations.
type RenderSurface interface {
	// TextLeaves enumerates text leaves in depth-first document order.
	TextLeaves() []TextLeaf
	// Split cuts leaf at a byte offset and returns the two resulting leaves.
	Split(leaf TextLeaf, offset int) (TextLeaf, TextLeaf, error)
	// Wrap encloses leaf in a highlight marker.
	Wrap(leaf TextLeaf, marker Marker) error
	// ClearMarkers removes every highlight marker, merging adjacent text leaves back together.
	ClearMarkers() error
}

// Apply clears previous highlights then highlights the first occurrence of each
// active annotation's text, in slice order. Earlier annotations win overlaps.
// Annotations whose text is not found are skipped. It returns how many were applied.
func Apply(surface RenderSurface, annotations []types.Annotation) (int, error) {
	if err := surface.ClearMarkers(); err != nil {
		return 0, err
	}

	applied := 0
	for i := range annotations {
		a := &annotations[i]
		if !a.IsActive {
			continue
		}
		ok, err := applyOne(surface, a)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

func applyOne(surface RenderSurface, a *types.Annotation) (bool, error) {
	needles := []string{a.Target.MatchText()}
	if a.Target.Text != "" && a.Target.Text != needles[0] {
		needles = append(needles, a.Target.Text)
	}

	for _, needle := range needles {
		if needle == "" {
			continue
		}
		for _, leaf := range surface.TextLeaves() {
			if leaf.InMarker() || !leaf.Annotatable() {
				continue
			}
			idx := strings.Index(leaf.Text(), needle)
			if idx < 0 {
				continue
			}
			return true, wrapRange(surface, leaf, idx, idx+len(needle), markerFor(a))
		}
	}
	return false, nil
}

// wrapRange splits leaf into before | match | after and wraps match.
func wrapRange(surface RenderSurface, leaf TextLeaf, start, end int, m Marker) error {
	match := leaf
	if start > 0 {
		_, rest, err := surface.Split(leaf, start)
		if err != nil {
			return err
		}
		match = rest
	}
	if end-start < len(match.Text()) {
		head, _, err := surface.Split(match, end-start)
		if err != nil {
			return err
		}
		match = head
	}
	return surface.Wrap(match, m)
}

func markerFor(a *types.Annotation) Marker {
	style := StyleFor(a.Relevance)
	return Marker{
		AnnotationID: a.ID,
		Relevance:    a.Relevance,
		Class:        style.Class,
		Label:        style.Label,
	}
}
