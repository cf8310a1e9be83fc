// Package scoring combines per-session signals into the frustration score.
//
// The score is a fixed weighted sum of a bounded percentage and two unbounded
// counts. The inputs are deliberately not normalized, so the weights do not
// translate into relative importance. Treat cross-signal comparisons with care.
package scoring

import (
	"context"
	"fmt"

	"github.com/okian/kartscore/internal/domain/model"
	"github.com/okian/kartscore/internal/domain/signals"
)

// Default weights of the frustration score.
const (
	DefaultOffGroundWeight   = 0.4
	DefaultSpeedDropWeight   = 0.4
	DefaultSteerChangeWeight = 0.2
)

// Weights are the coefficients applied to each signal.
type Weights struct {
	OffGround   float64
	SpeedDrop   float64
	SteerChange float64
}

// DefaultWeights returns the reference weighting.
func DefaultWeights() Weights {
	return Weights{
		OffGround:   DefaultOffGroundWeight,
		SpeedDrop:   DefaultSpeedDropWeight,
		SteerChange: DefaultSteerChangeWeight,
	}
}

// Option applies a configuration option to the SessionScorer.
type Option func(*SessionScorer)

// WithWeights replaces the default weights.
func WithWeights(w Weights) Option {
	return func(s *SessionScorer) {
		s.weights = w
	}
}

// WithSpeedDropThreshold sets the frame-to-frame delta below which a speed
// drop is counted.
func WithSpeedDropThreshold(threshold float64) Option {
	return func(s *SessionScorer) {
		s.speedDropThreshold = threshold
	}
}

// Input carries the signals the combiner needs.
type Input struct {
	OffGroundRatio   float64
	SpeedDropCount   int
	SteerChangeCount int
}

// Combine returns the weighted sum of the three signals.
func Combine(w Weights, in Input) float64 {
	return w.OffGround*in.OffGroundRatio +
		w.SpeedDrop*float64(in.SpeedDropCount) +
		w.SteerChange*float64(in.SteerChangeCount)
}

// Scorer produces the score row of one session.
type Scorer interface {
	// Score computes a session's signals and score, honoring ctx for cancellation.
	Score(ctx context.Context, s *model.Session) (model.SessionScore, error)
}

// SessionScorer implements Scorer with the signals package and Combine.
type SessionScorer struct {
	weights            Weights
	speedDropThreshold float64
}

// NewSessionScorer creates a scorer with the reference weights and threshold.
func NewSessionScorer(opts ...Option) *SessionScorer {
	s := &SessionScorer{
		weights:            DefaultWeights(),
		speedDropThreshold: signals.DefaultSpeedDropThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Weights returns the weights in use.
func (s *SessionScorer) Weights() Weights { return s.weights }

// SpeedDropThreshold returns the threshold in use.
func (s *SessionScorer) SpeedDropThreshold() float64 { return s.speedDropThreshold }

// Score extracts the session's signals and combines them.
func (s *SessionScorer) Score(ctx context.Context, session *model.Session) (model.SessionScore, error) {
	if err := ctx.Err(); err != nil {
		return model.SessionScore{}, err
	}

	sig, err := signals.Extract(session, s.speedDropThreshold)
	if err != nil {
		return model.SessionScore{}, fmt.Errorf("session %d: %w", session.ID, err)
	}

	return model.SessionScore{
		SessionID:        session.ID,
		Track:            session.Track,
		Difficulty:       session.Difficulty,
		OffGroundRatio:   sig.OffGroundRatio,
		SpeedDropCount:   sig.SpeedDropCount,
		SteerChangeCount: sig.SteerChangeCount,
		FrustrationScore: Combine(s.weights, Input{
			OffGroundRatio:   sig.OffGroundRatio,
			SpeedDropCount:   sig.SpeedDropCount,
			SteerChangeCount: sig.SteerChangeCount,
		}),
	}, nil
}
