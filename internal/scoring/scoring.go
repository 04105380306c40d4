// Package scoring derives coverage and the boost multiplier from an annotation set.
package scoring

import (
	"fmt"
	"math"

	"github.com/jonathan/jd-annotator/internal/types"
)

// boostExponent dampens the effect of stacking many annotations.
const boostExponent = 0.1

// SectionTarget is the number of annotations expected in one JD section.
type SectionTarget struct {
	Section string `json:"section" yaml:"section"`
	Label   string `json:"label" yaml:"label"`
	Target  int    `json:"target" yaml:"target"`
}

// DefaultSectionTargets returns the standard per-section expectations.
func DefaultSectionTargets() []SectionTarget {
	return []SectionTarget{
		{Section: "responsibilities", Label: "Responsibilities", Target: 5},
		{Section: "qualifications", Label: "Qualifications", Target: 5},
		{Section: "technical_skills", Label: "Technical Skills", Target: 4},
		{Section: "nice_to_have", Label: "Nice to Have", Target: 2},
	}
}

// SectionCoverage is the coverage of one section.
type SectionCoverage struct {
	Section string `json:"section"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Target  int    `json:"target"`
}

// Met reports whether the section reached its target.
func (s SectionCoverage) Met() bool {
	return s.Count >= s.Target
}

// Coverage summarizes how many expected annotations exist.
type Coverage struct {
	Percent  int               `json:"percent"`
	Sections []SectionCoverage `json:"sections"`
	Warnings []string          `json:"warnings"`
}

// Result holds every derived value.
type Result struct {
	Coverage Coverage `json:"coverage"`
	Boost    float64  `json:"boost"`
}

// Compute returns coverage and boost for annotations.
func Compute(annotations []types.Annotation, targets []SectionTarget) Result {
	return Result{
		Coverage: ComputeCoverage(annotations, targets),
		Boost:    Boost(annotations),
	}
}

// ComputeCoverage counts active annotations per section, caps each count at the
// section target and reports the capped total as a rounded percentage.
func ComputeCoverage(annotations []types.Annotation, targets []SectionTarget) Coverage {
	counts := make(map[string]int)
	for _, a := range annotations {
		if a.IsActive {
			counts[a.Target.Section]++
		}
	}

	cov := Coverage{
		Sections: make([]SectionCoverage, 0, len(targets)),
		Warnings: []string{},
	}
	totalTarget, totalCapped := 0, 0
	for _, t := range targets {
		count := counts[t.Section]
		capped := min(count, t.Target)
		totalTarget += t.Target
		totalCapped += capped

		sc := SectionCoverage{Section: t.Section, Label: t.Label, Count: count, Target: t.Target}
		cov.Sections = append(cov.Sections, sc)
		if !sc.Met() {
			cov.Warnings = append(cov.Warnings, fmt.Sprintf("%s: %d/%d annotations", t.Label, count, t.Target))
		}
	}

	if totalTarget > 0 {
		cov.Percent = int(math.Round(float64(totalCapped) / float64(totalTarget) * 100))
	}
	return cov
}

// Boost multiplies (relevanceWeight × requirementWeight)^0.1 over active annotations.
func Boost(annotations []types.Annotation) float64 {
	boost := 1.0
	for _, a := range annotations {
		if !a.IsActive {
			continue
		}
		w := types.RelevanceWeight(a.Relevance) * types.RequirementWeight(a.RequirementType)
		boost *= math.Pow(w, boostExponent)
	}
	return boost
}
