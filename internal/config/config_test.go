package config_test

import (
	"errors"
	"testing"

	"github.com/okian/segmentor/internal/adapters/render"
	"github.com/okian/segmentor/internal/adapters/source"
	"github.com/okian/segmentor/internal/config"
	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Source.Kind, convey.ShouldEqual, source.KindFile)
			convey.So(cfg.Source.Path, convey.ShouldEqual, "snapshot.yaml")
			convey.So(cfg.Tiers, convey.ShouldResemble, tier.CustomerValue())
			convey.So(cfg.Output.Format, convey.ShouldEqual, render.FormatTable)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When an sql source has no dsn", func() {
			cfg.Source.Kind = source.KindSQL
			err := cfg.Validate()

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "source.dsn")
			})
		})

		convey.Convey("When a file source has no path", func() {
			cfg.Source.Path = " "
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the source kind is unknown", func() {
			cfg.Source.Kind = "s3"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the output format is unknown", func() {
			cfg.Output.Format = "xml"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "xml")
		})

		convey.Convey("When the tiers are out of order", func() {
			cfg.Tiers = tier.New(
				tier.Tier{Label: "Low", Threshold: 0.2},
				tier.Tier{Label: "High", Threshold: 0.8},
			)
			err := cfg.Validate()

			convey.Convey("Then both the config and tier sentinels should match", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, tier.ErrInvalidDefinition), convey.ShouldBeTrue)
			})
		})
	})
}
