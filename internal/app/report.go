package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/kartscore/internal/adapters/csvlog"
	"github.com/okian/kartscore/internal/domain/grouping"
)

// KindMalformedRow marks a report entry for an input row dropped under the
// skip policy.
const KindMalformedRow = "malformed_row"

// Report summarizes one batch run.
type Report struct {
	RunID            string        `yaml:"run_id"`
	Input            string        `yaml:"input"`
	Output           string        `yaml:"output"`
	StartedAt        time.Time     `yaml:"started_at"`
	RecordsRead      int           `yaml:"records_read"`
	MalformedSkipped int           `yaml:"malformed_skipped"`
	Sessions         int           `yaml:"sessions"`
	SessionsScored   int           `yaml:"sessions_scored"`
	Warnings         []Anomaly     `yaml:"warnings,omitempty"`
	Elapsed          time.Duration `yaml:"-"`
	ElapsedSeconds   float64       `yaml:"elapsed_seconds"`
	Error            string        `yaml:"error,omitempty"`
}

// Anomaly is one non-fatal finding of a run.
type Anomaly struct {
	Kind    string `yaml:"kind"`
	Session *int64 `yaml:"session,omitempty"`
	Line    int    `yaml:"line,omitempty"`
	Detail  string `yaml:"detail"`
}

func (r *Report) addWarning(w grouping.Warning) {
	id := w.SessionID()
	r.Warnings = append(r.Warnings, Anomaly{Kind: w.Kind(), Session: &id, Detail: w.String()})
}

func (r *Report) addMalformed(e *csvlog.MalformedRecordError) {
	r.Warnings = append(r.Warnings, Anomaly{Kind: KindMalformedRow, Line: e.Line, Detail: e.Error()})
}

// WarningCount returns how many warnings of kind the run produced.
func (r *Report) WarningCount(kind string) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// WriteReport writes r to path as YAML, replacing any previous report.
func WriteReport(path string, r *Report) error {
	out := *r
	out.ElapsedSeconds = r.Elapsed.Seconds()

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // reports are world readable
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	r.Elapsed = time.Duration(r.ElapsedSeconds * float64(time.Second))
	return &r, nil
}
