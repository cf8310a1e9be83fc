// Package signals extracts behavioral signals from one time-ordered session.
//
// Every extractor is a pure function over the sorted records of a single
// session. None of them mutates its input or depends on another extractor.
package signals

import (
	"github.com/okian/kartscore/internal/domain/model"
)

// DefaultSpeedDropThreshold is the frame-to-frame speed delta below which a
// drop is counted.
const DefaultSpeedDropThreshold = -5.0

// Signals bundles the three per-session signals.
type Signals struct {
	OffGroundRatio   float64 // percent of airborne frames, 0-100
	SpeedDropCount   int     // abrupt frame-to-frame speed drops
	SteerChangeCount int     // steering sign transitions
}

// Extract computes all three signals for a session.
func Extract(s *model.Session, speedDropThreshold float64) (Signals, error) {
	ratio, err := OffGroundRatio(s.Records)
	if err != nil {
		return Signals{}, err
	}
	return Signals{
		OffGroundRatio:   ratio,
		SpeedDropCount:   SpeedDropCount(s.Records, speedDropThreshold),
		SteerChangeCount: SteerChangeCount(s.Records),
	}, nil
}

// OffGroundRatio returns 100 * airborne frames / total frames.
func OffGroundRatio(records []model.TelemetryRecord) (float64, error) {
	if len(records) == 0 {
		return 0, ErrEmptySession
	}
	airborne := 0
	for i := range records {
		if !records[i].OnGround {
			airborne++
		}
	}
	return 100 * float64(airborne) / float64(len(records)), nil
}

// SpeedDropCount counts consecutive frames whose speed difference is strictly
// below threshold. Fewer than two frames yield 0.
func SpeedDropCount(records []model.TelemetryRecord, threshold float64) int {
	drops := 0
	for i := 1; i < len(records); i++ {
		if records[i].Speed-records[i-1].Speed < threshold {
			drops++
		}
	}
	return drops
}

// SteerChangeCount counts consecutive frames whose steering sign differs.
// Transitions to and from zero count as well. Fewer than two frames yield 0.
func SteerChangeCount(records []model.TelemetryRecord) int {
	changes := 0
	for i := 1; i < len(records); i++ {
		if sign(records[i].Steer) != sign(records[i-1].Steer) {
			changes++
		}
	}
	return changes
}

// sign returns -1, 0 or +1. sign(0) is 0.
func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
