package types

import (
	"fmt"
	"slices"
)

// Dimension names one of the four tagging dimensions.
type Dimension string

// Dimension names as they appear in the persisted document.
const (
	DimensionRelevance       Dimension = "relevance"
	DimensionRequirementType Dimension = "requirement_type"
	DimensionPassion         Dimension = "passion"
	DimensionIdentity        Dimension = "identity"
)

// AllDimensions lists the dimensions in display order.
var AllDimensions = []Dimension{
	DimensionRelevance,
	DimensionRequirementType,
	DimensionPassion,
	DimensionIdentity,
}

var dimensionValues = map[Dimension][]string{
	DimensionRelevance: {
		string(RelevanceCoreStrength), string(RelevanceExtremelyRelevant),
		string(RelevanceRelevant), string(RelevanceTangential), string(RelevanceGap),
	},
	DimensionRequirementType: {
		string(RequirementMustHave), string(RequirementNiceToHave),
		string(RequirementNeutral), string(RequirementDisqualifier),
	},
	DimensionPassion: {
		string(PassionLoveIt), string(PassionEnjoy), string(PassionNeutral),
		string(PassionTolerate), string(PassionAvoid),
	},
	DimensionIdentity: {
		string(IdentityCore), string(IdentityStrong), string(IdentityDeveloping),
		string(IdentityPeripheral), string(IdentityNot),
	},
}

// ValidateDimensionValue checks that value is a legal, non-empty value for dim.
func ValidateDimensionValue(dim Dimension, value string) error {
	allowed, ok := dimensionValues[dim]
	if !ok {
		return fmt.Errorf("unknown dimension %q", dim)
	}
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %s value %q", dim, value)
	}
	return nil
}

// Get returns the value of one dimension.
func (d Dimensions) Get(dim Dimension) string {
	switch dim {
	case DimensionRelevance:
		return string(d.Relevance)
	case DimensionRequirementType:
		return string(d.RequirementType)
	case DimensionPassion:
		return string(d.Passion)
	case DimensionIdentity:
		return string(d.Identity)
	}
	return ""
}

// Set assigns one dimension. An empty value clears it.
func (d *Dimensions) Set(dim Dimension, value string) {
	switch dim {
	case DimensionRelevance:
		d.Relevance = Relevance(value)
	case DimensionRequirementType:
		d.RequirementType = RequirementType(value)
	case DimensionPassion:
		d.Passion = Passion(value)
	case DimensionIdentity:
		d.Identity = Identity(value)
	}
}

// RelevanceLevel pairs a relevance value with its scoring weight and display name.
type RelevanceLevel struct {
	Value  Relevance
	Name   string
	Weight float64
}

// RelevanceLevels is the single weight table for relevance, strongest first.
// Scoring and highlight labels both read from it.
var RelevanceLevels = []RelevanceLevel{
	{Value: RelevanceCoreStrength, Name: "Core", Weight: 3.0},
	{Value: RelevanceExtremelyRelevant, Name: "Extremely Relevant", Weight: 2.0},
	{Value: RelevanceRelevant, Name: "Relevant", Weight: 1.5},
	{Value: RelevanceTangential, Name: "Tangential", Weight: 1.0},
	{Value: RelevanceGap, Name: "Gap", Weight: 0.3},
}

// RequirementWeights maps requirement types to scoring weights.
var RequirementWeights = map[RequirementType]float64{
	RequirementMustHave:     1.5,
	RequirementNiceToHave:   1.0,
	RequirementNeutral:      1.0,
	RequirementDisqualifier: 0.0,
}

// RelevanceWeight returns the weight for r, or 1.0 when unset or unknown.
func RelevanceWeight(r Relevance) float64 {
	for _, level := range RelevanceLevels {
		if level.Value == r {
			return level.Weight
		}
	}
	return 1.0
}

// RequirementWeight returns the weight for r, or 1.0 when unset or unknown.
func RequirementWeight(r RequirementType) float64 {
	if w, ok := RequirementWeights[r]; ok {
		return w
	}
	return 1.0
}
