// Package grouping partitions telemetry records into time-ordered sessions.
package grouping

import (
	"sort"

	"github.com/okian/kartscore/internal/domain/model"
)

// Result is the outcome of grouping one batch of records.
type Result struct {
	// Sessions in order of first appearance of their identifier in the input.
	Sessions []model.Session
	// Warnings lists non-fatal anomalies, ordered like Sessions.
	Warnings []Warning
}

// Group partitions records by SessionID and sorts each partition by
// TimestampMS. Ties keep their input order. Only identifiers that occur in the
// input produce a session, so no session is ever empty. The input slice is
// not modified.
func Group(records []model.TelemetryRecord) Result {
	index := make(map[int64]int)
	var sessions []model.Session

	for i := range records {
		rec := records[i]
		pos, ok := index[rec.SessionID]
		if !ok {
			pos = len(sessions)
			index[rec.SessionID] = pos
			sessions = append(sessions, model.Session{ID: rec.SessionID})
		}
		sessions[pos].Records = append(sessions[pos].Records, rec)
	}

	var warnings []Warning
	for i := range sessions {
		s := &sessions[i]
		sort.SliceStable(s.Records, func(a, b int) bool {
			return s.Records[a].TimestampMS < s.Records[b].TimestampMS
		})

		first := s.Records[0]
		s.Track = first.Track
		s.Difficulty = first.Difficulty
		s.KartType = first.KartType

		if fields := inconsistentFields(s.Records); len(fields) > 0 {
			warnings = append(warnings, InconsistentMetadataWarning{Session: s.ID, Fields: fields})
		}
	}

	return Result{Sessions: sessions, Warnings: warnings}
}

// inconsistentFields names the metadata columns that vary within records,
// compared against the first record.
func inconsistentFields(records []model.TelemetryRecord) []string {
	first := records[0]
	var track, difficulty, kart bool
	for i := 1; i < len(records); i++ {
		r := &records[i]
		track = track || r.Track != first.Track
		difficulty = difficulty || r.Difficulty != first.Difficulty
		kart = kart || r.KartType != first.KartType
	}

	var fields []string
	if track {
		fields = append(fields, "track")
	}
	if difficulty {
		fields = append(fields, "difficulty")
	}
	if kart {
		fields = append(fields, "kart_type")
	}
	return fields
}

// CheckEmpty returns an EmptySessionWarning for every session without records.
// Group never produces one; callers that build sessions by other means use it
// before scoring.
func CheckEmpty(sessions []model.Session) []Warning {
	var warnings []Warning
	for i := range sessions {
		if len(sessions[i].Records) == 0 {
			warnings = append(warnings, EmptySessionWarning{Session: sessions[i].ID})
		}
	}
	return warnings
}
