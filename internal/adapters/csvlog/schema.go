// Package csvlog reads telemetry tables and writes score tables.
//
// The telemetry table is produced by an external per-frame sampler. The
// column contract is fixed; the reader only accepts rows matching it.
package csvlog

import (
	"strconv"

	"github.com/okian/kartscore/internal/domain/model"
)

// Telemetry columns, in file order.
const (
	colGameID = iota
	colTime
	colTrack
	colDifficulty
	colKartType
	colSteer
	colAccel
	colSpeed
	colBrake
	colOnGround
	colX
	colY
	colZ
	colEnergy
	telemetryColumns
)

// TelemetryHeader is the exact header row of a telemetry table.
var TelemetryHeader = []string{
	"game_id", "time", "track", "difficulty", "kart_type",
	"steer", "accel", "speed", "brake", "on_ground",
	"x", "y", "z", "energy",
}

// ScoreHeader is the header row of the score table.
var ScoreHeader = []string{
	"game_id", "track", "difficulty",
	"off_ground_ratio", "speed_drop_count", "steer_change_count",
	"frustration_score",
}

// formatFloat writes the shortest decimal that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// telemetryRow renders a record in TelemetryHeader order.
func telemetryRow(r *model.TelemetryRecord) []string {
	return []string{
		strconv.FormatInt(r.SessionID, 10),
		strconv.FormatInt(r.TimestampMS, 10),
		r.Track,
		r.Difficulty.String(),
		r.KartType,
		formatFloat(r.Steer),
		formatFloat(r.Accel),
		formatFloat(r.Speed),
		formatBool(r.Brake),
		formatBool(r.OnGround),
		formatFloat(r.Position[0]),
		formatFloat(r.Position[1]),
		formatFloat(r.Position[2]),
		formatFloat(r.Energy),
	}
}

// scoreRow renders a score in ScoreHeader order.
func scoreRow(s *model.SessionScore) []string {
	return []string{
		strconv.FormatInt(s.SessionID, 10),
		s.Track,
		s.Difficulty.String(),
		formatFloat(s.OffGroundRatio),
		strconv.Itoa(s.SpeedDropCount),
		strconv.Itoa(s.SteerChangeCount),
		formatFloat(s.FrustrationScore),
	}
}
