package tier_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/segmentor/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefinition_Validate(t *testing.T) {
	Convey("Given tier definitions", t, func() {
		Convey("When the definition is a preset", func() {
			Convey("Then it should be valid", func() {
				So(tier.CustomerValue().Validate(), ShouldBeNil)
				So(tier.AgeBrackets().Validate(), ShouldBeNil)
			})
		})

		Convey("When thresholds increase", func() {
			def := tier.New(tier.Tier{Label: "A", Threshold: 0.5}, tier.Tier{Label: "B", Threshold: 0.6})
			err := def.Validate()

			Convey("Then it should be rejected with the offending index", func() {
				So(errors.Is(err, tier.ErrInvalidDefinition), ShouldBeTrue)
				var ide *tier.InvalidDefinitionError
				So(errors.As(err, &ide), ShouldBeTrue)
				So(ide.Index, ShouldEqual, 1)
			})
		})

		Convey("When thresholds repeat", func() {
			def := tier.New(tier.Tier{Label: "A", Threshold: 0.5}, tier.Tier{Label: "B", Threshold: 0.5})

			Convey("Then strict decrease should be enforced", func() {
				So(errors.Is(def.Validate(), tier.ErrInvalidDefinition), ShouldBeTrue)
			})
		})

		Convey("When the list is empty", func() {
			err := tier.New().Validate()

			Convey("Then it should be rejected for the whole definition", func() {
				var ide *tier.InvalidDefinitionError
				So(errors.As(err, &ide), ShouldBeTrue)
				So(ide.Index, ShouldEqual, -1)
			})
		})

		Convey("When a percentile threshold is out of range", func() {
			over := tier.New(tier.Tier{Label: "A", Threshold: 1.5}, tier.Tier{Label: "B", Threshold: 0})
			neg := tier.New(tier.Tier{Label: "A", Threshold: 0.5}, tier.Tier{Label: "B", Threshold: -0.1})
			nan := tier.New(tier.Tier{Label: "A", Threshold: math.NaN()})

			Convey("Then it should be rejected", func() {
				So(over.Validate(), ShouldNotBeNil)
				So(neg.Validate(), ShouldNotBeNil)
				So(nan.Validate(), ShouldNotBeNil)
			})
		})

		Convey("When a measure threshold is above 1", func() {
			def := tier.Definition{Basis: tier.BasisMeasure, Tiers: []tier.Tier{{Label: "Big", Threshold: 1000}, {Label: "Small", Threshold: 0}}}

			Convey("Then it should be accepted", func() {
				So(def.Validate(), ShouldBeNil)
			})
		})

		Convey("When labels are empty or duplicated", func() {
			empty := tier.New(tier.Tier{Label: " ", Threshold: 0})
			dup := tier.New(tier.Tier{Label: "A", Threshold: 0.5}, tier.Tier{Label: "A", Threshold: 0})

			Convey("Then it should be rejected", func() {
				So(empty.Validate(), ShouldNotBeNil)
				So(dup.Validate(), ShouldNotBeNil)
			})
		})

		Convey("When the basis is unknown", func() {
			def := tier.Definition{Basis: "rank", Tiers: []tier.Tier{{Label: "A", Threshold: 0}}}

			Convey("Then it should be rejected", func() {
				So(errors.Is(def.Validate(), tier.ErrInvalidDefinition), ShouldBeTrue)
			})
		})
	})
}

func TestDefinition_Assign(t *testing.T) {
	def := tier.New(
		tier.Tier{Label: "High", Threshold: 0.80},
		tier.Tier{Label: "Medium", Threshold: 0.50},
		tier.Tier{Label: "Low", Threshold: 0},
	)

	tests := []struct {
		value float64
		want  string
	}{
		{1.0, "High"},
		{0.80, "High"},
		{0.79, "Medium"},
		{0.50, "Medium"},
		{0.25, "Low"},
		{0, "Low"},
	}
	for _, tt := range tests {
		if got := def.Tiers[def.Assign(tt.value)].Label; got != tt.want {
			t.Errorf("Assign(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}

	// The last tier is the default even when its threshold is above zero.
	partial := tier.New(tier.Tier{Label: "Top", Threshold: 0.9}, tier.Tier{Label: "Rest", Threshold: 0.2})
	if got := partial.Tiers[partial.Assign(0.1)].Label; got != "Rest" {
		t.Errorf("Assign(0.1) = %s, want Rest", got)
	}
}

func TestDefinition_Labels(t *testing.T) {
	got := tier.CustomerValue().Labels()
	want := []string{"High Value", "Medium Value", "Low Value"}
	if len(got) != len(want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("labels[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if b := (tier.Definition{}).EffectiveBasis(); b != tier.BasisPercentile {
		t.Errorf("default basis = %s", b)
	}
}

func TestParse(t *testing.T) {
	Convey("Given a compact tier list", t, func() {
		Convey("When it is well formed", func() {
			levels, err := tier.Parse(" Gold = 0.9, Silver=0.4 ,Bronze=0")

			Convey("Then labels and thresholds keep their written order", func() {
				So(err, ShouldBeNil)
				So(levels, ShouldResemble, []tier.Tier{
					{Label: "Gold", Threshold: 0.9},
					{Label: "Silver", Threshold: 0.4},
					{Label: "Bronze", Threshold: 0},
				})
				So(tier.New(levels...).Validate(), ShouldBeNil)
			})
		})

		Convey("When an entry has no threshold", func() {
			_, err := tier.Parse("Gold=0.9,Silver")

			Convey("Then the entry index is reported", func() {
				var ide *tier.InvalidDefinitionError
				So(errors.As(err, &ide), ShouldBeTrue)
				So(ide.Index, ShouldEqual, 1)
			})
		})

		Convey("When a threshold is not a number", func() {
			_, err := tier.Parse("Gold=high")
			So(errors.Is(err, tier.ErrInvalidDefinition), ShouldBeTrue)
		})

		Convey("When the list is empty", func() {
			_, err := tier.Parse("  ")
			So(errors.Is(err, tier.ErrInvalidDefinition), ShouldBeTrue)
		})
	})
}
