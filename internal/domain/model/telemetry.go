// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Difficulty is the race difficulty a session was played at.
type Difficulty int

// Known difficulties, in the order the game numbers them.
const (
	Novice Difficulty = iota
	Intermediate
	Expert
	SuperTux
)

var difficultyNames = [...]string{
	Novice:       "Novice",
	Intermediate: "Intermediate",
	Expert:       "Expert",
	SuperTux:     "SuperTux",
}

// String returns the canonical difficulty name.
func (d Difficulty) String() string {
	if d < Novice || d > SuperTux {
		return "Difficulty(" + strconv.Itoa(int(d)) + ")"
	}
	return difficultyNames[d]
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	return d >= Novice && d <= SuperTux
}

// ParseDifficulty accepts a difficulty name (case-insensitive) or its integer code.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.TrimSpace(s)
	for i, name := range difficultyNames {
		if strings.EqualFold(s, name) {
			return Difficulty(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Difficulty(n).Valid() {
		return Difficulty(n), nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

// TelemetryRecord is one per-frame sample of a race attempt.
type TelemetryRecord struct {
	SessionID   int64      // opaque, unique per race attempt
	TimestampMS int64      // ms since an arbitrary epoch
	Track       string     // track identifier
	Difficulty  Difficulty // race difficulty
	KartType    string     // kart identifier
	Steer       float64    // signed steering input, typically [-1, 1]
	Accel       float64    // throttle input
	Speed       float64    // non-negative
	Brake       bool       // brake pressed
	OnGround    bool       // wheels touching the track
	Position    [3]float64 // x, y, z
	Energy      float64    // nitro energy

	// Line is the 1-based source line the record was read from. Zero for
	// records built in memory.
	Line int
}

// Session is the time-ordered sequence of records sharing one SessionID.
// Track, Difficulty and KartType come from the first record.
type Session struct {
	ID         int64
	Track      string
	Difficulty Difficulty
	KartType   string
	Records    []TelemetryRecord
}

// Len returns the number of frames in the session.
func (s *Session) Len() int { return len(s.Records) }

// SessionScore is the scored row emitted for one session.
type SessionScore struct {
	SessionID        int64
	Track            string
	Difficulty       Difficulty
	OffGroundRatio   float64 // percent, 0-100
	SpeedDropCount   int
	SteerChangeCount int
	FrustrationScore float64
}
