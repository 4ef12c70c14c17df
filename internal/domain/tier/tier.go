// Package tier defines ordered threshold buckets used to label entities.
//
// A Definition lists tiers from the highest threshold to the lowest. A value
// belongs to the first tier whose threshold is less than or equal to it; the
// last tier catches everything that is left.
package tier

import (
	"fmt"
	"math"
	"strings"
)

// Basis selects what a tier threshold is compared against.
type Basis string

const (
	// BasisPercentile compares thresholds with the entity's percent rank in [0,1].
	BasisPercentile Basis = "percentile"
	// BasisMeasure compares thresholds with the raw entity measure.
	BasisMeasure Basis = "measure"
)

// Tier is a named bucket with an inclusive lower bound.
type Tier struct {
	Label     string  `json:"label" yaml:"label" koanf:"label"`
	Threshold float64 `json:"threshold" yaml:"threshold" koanf:"threshold"`
}

// Definition is an ordered, strictly decreasing list of tiers.
type Definition struct {
	Basis Basis  `json:"basis" yaml:"basis" koanf:"basis"`
	Tiers []Tier `json:"levels" yaml:"levels" koanf:"levels"`
}

// New builds a percentile Definition from tiers in declared order.
func New(tiers ...Tier) Definition {
	return Definition{Basis: BasisPercentile, Tiers: tiers}
}

// EffectiveBasis returns the basis, defaulting to percentile.
func (d Definition) EffectiveBasis() Basis {
	if d.Basis == "" {
		return BasisPercentile
	}
	return d.Basis
}

// Validate checks the definition. It returns *InvalidDefinitionError.
func (d Definition) Validate() error {
	basis := d.EffectiveBasis()
	if basis != BasisPercentile && basis != BasisMeasure {
		return invalid(-1, fmt.Sprintf("unknown basis %q", d.Basis))
	}
	if len(d.Tiers) == 0 {
		return invalid(-1, "no tiers defined")
	}

	seen := make(map[string]struct{}, len(d.Tiers))
	for i, t := range d.Tiers {
		label := strings.TrimSpace(t.Label)
		if label == "" {
			return invalid(i, "empty label")
		}
		if _, dup := seen[label]; dup {
			return invalid(i, fmt.Sprintf("duplicate label %q", label))
		}
		seen[label] = struct{}{}

		if math.IsNaN(t.Threshold) || t.Threshold < 0 {
			return invalid(i, fmt.Sprintf("threshold %v is negative", t.Threshold))
		}
		if basis == BasisPercentile && t.Threshold > 1 {
			return invalid(i, fmt.Sprintf("threshold %v is outside [0,1]", t.Threshold))
		}
		if i > 0 && t.Threshold >= d.Tiers[i-1].Threshold {
			return invalid(i, fmt.Sprintf("threshold %v is not below previous threshold %v", t.Threshold, d.Tiers[i-1].Threshold))
		}
	}
	return nil
}

// Assign returns the index of the first tier whose threshold is <= value.
// The last tier is the default bucket whatever its threshold.
func (d Definition) Assign(value float64) int {
	for i, t := range d.Tiers {
		if value >= t.Threshold {
			return i
		}
	}
	return len(d.Tiers) - 1
}

// Labels returns the tier labels in declared order.
func (d Definition) Labels() []string {
	out := make([]string, len(d.Tiers))
	for i, t := range d.Tiers {
		out[i] = t.Label
	}
	return out
}

// CustomerValue is the customer lifetime-value tiering.
func CustomerValue() Definition {
	return New(
		Tier{Label: "High Value", Threshold: 0.80},
		Tier{Label: "Medium Value", Threshold: 0.50},
		Tier{Label: "Low Value", Threshold: 0},
	)
}

// AgeBrackets buckets customers by age in years.
func AgeBrackets() Definition {
	return Definition{
		Basis: BasisMeasure,
		Tiers: []Tier{
			{Label: "65+", Threshold: 65},
			{Label: "50-64", Threshold: 50},
			{Label: "35-49", Threshold: 35},
			{Label: "25-34", Threshold: 25},
			{Label: "Under 25", Threshold: 0},
		},
	}
}
