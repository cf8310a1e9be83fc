package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/kartscore/internal/domain/model"
	scoring "github.com/okian/kartscore/internal/domain/scoring"
	"github.com/okian/kartscore/internal/domain/signals"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCombine(t *testing.T) {
	Convey("Given the default weights", t, func() {
		w := scoring.DefaultWeights()

		Convey("When every signal is zero", func() {
			Convey("Then the score is zero", func() {
				So(scoring.Combine(w, scoring.Input{}), ShouldEqual, 0.0)
			})
		})

		Convey("When the session is airborne with one drop and two steering changes", func() {
			got := scoring.Combine(w, scoring.Input{OffGroundRatio: 100, SpeedDropCount: 1, SteerChangeCount: 2})

			Convey("Then the score is 0.4*100 + 0.4*1 + 0.2*2", func() {
				So(got, ShouldAlmostEqual, 40.8, 1e-9)
			})
		})

		Convey("When only counts are present", func() {
			got := scoring.Combine(w, scoring.Input{SpeedDropCount: 10, SteerChangeCount: 50})

			Convey("Then the unbounded counts are not normalized", func() {
				So(got, ShouldAlmostEqual, 14.0, 1e-9)
			})
		})
	})

	Convey("Given custom weights", t, func() {
		w := scoring.Weights{OffGround: 1, SpeedDrop: 0, SteerChange: 0}

		Convey("Then only the weighted signal contributes", func() {
			So(scoring.Combine(w, scoring.Input{OffGroundRatio: 12.5, SpeedDropCount: 3, SteerChangeCount: 9}), ShouldEqual, 12.5)
		})
	})
}

func TestSessionScorer_Score(t *testing.T) {
	Convey("Given a scorer with default options", t, func() {
		scorer := scoring.NewSessionScorer()

		Convey("Then defaults are in place", func() {
			So(scorer.Weights(), ShouldResemble, scoring.DefaultWeights())
			So(scorer.SpeedDropThreshold(), ShouldEqual, signals.DefaultSpeedDropThreshold)
		})

		Convey("When scoring a calm grounded session", func() {
			s := &model.Session{ID: 1, Track: "lighthouse", Difficulty: model.Novice, Records: []model.TelemetryRecord{
				{TimestampMS: 0, Speed: 10, OnGround: true},
				{TimestampMS: 1, Speed: 10, OnGround: true},
				{TimestampMS: 2, Speed: 10, OnGround: true},
			}}
			got, err := scorer.Score(context.Background(), s)

			Convey("Then the score row is all zeros with metadata copied", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, model.SessionScore{SessionID: 1, Track: "lighthouse", Difficulty: model.Novice})
			})
		})

		Convey("When scoring an airborne, jittery session", func() {
			s := &model.Session{ID: 2, Track: "volcano_island", Difficulty: model.SuperTux, Records: []model.TelemetryRecord{
				{TimestampMS: 0, Speed: 20, Steer: 1},
				{TimestampMS: 1, Speed: 5, Steer: -1},
				{TimestampMS: 2, Speed: 5, Steer: 1},
			}}
			got, err := scorer.Score(context.Background(), s)

			Convey("Then signals and score match the reference computation", func() {
				So(err, ShouldBeNil)
				So(got.OffGroundRatio, ShouldEqual, 100.0)
				So(got.SpeedDropCount, ShouldEqual, 1)
				So(got.SteerChangeCount, ShouldEqual, 2)
				So(got.FrustrationScore, ShouldAlmostEqual, 40.8, 1e-9)
			})
		})

		Convey("When scoring an empty session", func() {
			_, err := scorer.Score(context.Background(), &model.Session{ID: 9})

			Convey("Then the empty-session error is wrapped", func() {
				So(errors.Is(err, signals.ErrEmptySession), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "session 9")
			})
		})

		Convey("When context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			got, err := scorer.Score(ctx, &model.Session{ID: 3, Records: []model.TelemetryRecord{{}}})

			Convey("Then it should return the context error", func() {
				So(err, ShouldEqual, context.Canceled)
				So(got, ShouldResemble, model.SessionScore{})
			})
		})
	})
}

func TestSessionScorer_Options(t *testing.T) {
	Convey("Given a scorer with custom options", t, func() {
		scorer := scoring.NewSessionScorer(
			scoring.WithWeights(scoring.Weights{OffGround: 0, SpeedDrop: 1, SteerChange: 0}),
			scoring.WithSpeedDropThreshold(-1),
		)
		s := &model.Session{ID: 4, Records: []model.TelemetryRecord{
			{TimestampMS: 0, Speed: 10, OnGround: true},
			{TimestampMS: 1, Speed: 8, OnGround: true},
			{TimestampMS: 2, Speed: 6, OnGround: true},
		}}

		Convey("When scoring", func() {
			got, err := scorer.Score(context.Background(), s)

			Convey("Then the custom threshold and weights apply", func() {
				So(err, ShouldBeNil)
				So(got.SpeedDropCount, ShouldEqual, 2)
				So(got.FrustrationScore, ShouldEqual, 2.0)
			})
		})

		Convey("Then the accessors report the options", func() {
			So(scorer.SpeedDropThreshold(), ShouldEqual, -1.0)
			So(scorer.Weights().SpeedDrop, ShouldEqual, 1.0)
		})
	})
}
