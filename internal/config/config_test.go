package config_test

import (
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/okian/kartscore/internal/adapters/csvlog"
	"github.com/okian/kartscore/internal/adapters/repository"
	"github.com/okian/kartscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the documented defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.SpeedDropThreshold, convey.ShouldEqual, -5.0)
			convey.So(cfg.Weights.OffGround, convey.ShouldEqual, 0.4)
			convey.So(cfg.Weights.SpeedDrop, convey.ShouldEqual, 0.4)
			convey.So(cfg.Weights.SteerChange, convey.ShouldEqual, 0.2)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.SortBy, convey.ShouldEqual, string(repository.ByAppearance))
			convey.So(cfg.MalformedPolicy, convey.ShouldEqual, "reject")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the threshold is not finite", func() {
			cfg.SpeedDropThreshold = math.NaN()
			err := cfg.Validate()

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a weight is infinite", func() {
			cfg.Weights.SteerChange = math.Inf(1)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker count is zero", func() {
			cfg.WorkerCount = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "worker_count")
			})
		})

		convey.Convey("When sort_by is unknown", func() {
			cfg.SortBy = "kart"

			convey.Convey("Then validation fails with the order parser's error", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, repository.ErrUnknownOrder), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When metrics labels are set", func() {
			cfg.MetricsLabels = map[string]string{"dataset": "stk", "host_1": "a"}
			convey.So(cfg.Validate(), convey.ShouldBeNil)

			convey.Convey("Then names Prometheus cannot use are rejected", func() {
				for _, name := range []string{"9lives", "kart-type", "__reserved"} {
					cfg.MetricsLabels = map[string]string{name: "x"}
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When malformed_policy is unknown", func() {
			cfg.MalformedPolicy = "repair"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When every sort key is tried", func() {
			convey.Convey("Then each is accepted", func() {
				for _, o := range []repository.Order{repository.ByAppearance, repository.BySession, repository.ByTrack, repository.ByDifficulty, repository.ByScore} {
					cfg.SortBy = string(o)
					convey.So(cfg.Validate(), convey.ShouldBeNil)
				}
			})
		})

		convey.Convey("When names are given the way the parsers accept them", func() {
			cfg.SortBy = "Score"
			cfg.MalformedPolicy = csvlog.Skip.String()

			convey.Convey("Then validation agrees with the parsers", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				o, err := repository.ParseOrder(cfg.SortBy)
				convey.So(err, convey.ShouldBeNil)
				convey.So(o, convey.ShouldEqual, repository.ByScore)
				p, err := csvlog.ParsePolicy(cfg.MalformedPolicy)
				convey.So(err, convey.ShouldBeNil)
				convey.So(p, convey.ShouldEqual, csvlog.Skip)
			})
		})
	})
}
