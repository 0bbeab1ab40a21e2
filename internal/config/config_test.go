package config_test

import (
	"errors"
	"testing"

	"github.com/okian/rallyeval/internal/config"
	"github.com/okian/rallyeval/internal/domain/matching"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Tolerance, convey.ShouldEqual, 5)
			convey.So(cfg.MatchMode, convey.ShouldEqual, "any")
			convey.So(cfg.Mode(), convey.ShouldEqual, matching.ModeAny)
			convey.So(cfg.PlotWidthIn, convey.ShouldEqual, 12.0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with out-of-range fields", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"negative tolerance", func(c *config.Config) { c.Tolerance = -1 }},
			{"unknown mode", func(c *config.Config) { c.MatchMode = "hungarian" }},
			{"zero plot width", func(c *config.Config) { c.PlotWidthIn = 0 }},
			{"zero body limit", func(c *config.Config) { c.MaxBodyBytes = 0 }},
		}
		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is invalid", func() {
				cfg := config.New()
				tc.mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
