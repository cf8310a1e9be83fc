// Package telemetrygen produces deterministic synthetic telemetry logs for
// demos and fixtures. It plays the part of the in-game frame sampler and
// writes through the same append-only sink.
package telemetrygen

import (
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for a generation run.
type Config struct {
	Sessions        int           // number of race attempts
	Frames          int           // frames per session
	FrameInterval   time.Duration // time between frames
	Seed            int64         // same seed, same log
	Interleave      bool          // emit sessions' frames interleaved, as concurrent races would
	Output          string        // telemetry log to append to
	Tracks          []string      // tracks to pick from, defaults to DefaultTracks
	DifficultyDrift float64       // probability a frame carries a wrong difficulty, for anomaly demos
}

// Stats holds generation statistics.
type Stats struct {
	Sessions  int
	Records   int
	ByProfile map[Profile]int
	StartTime time.Time
	Duration  time.Duration
}

// ErrInvalidConfig is returned for configurations that cannot produce a log.
var ErrInvalidConfig = errors.New("invalid generator config")

// Validate checks c and fills defaults.
func (c *Config) Validate() error {
	if c.Sessions < 0 {
		return fmt.Errorf("%w: sessions must not be negative", ErrInvalidConfig)
	}
	if c.Frames < 1 {
		return fmt.Errorf("%w: frames must be at least 1", ErrInvalidConfig)
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.DifficultyDrift < 0 || c.DifficultyDrift > 1 {
		return fmt.Errorf("%w: difficulty drift must be within [0,1]", ErrInvalidConfig)
	}
	if len(c.Tracks) == 0 {
		c.Tracks = DefaultTracks
	}
	return nil
}
