package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/kartscore/internal/domain/model"
	"github.com/okian/kartscore/pkg/metrics"
)

// Emitter writes score tables.
type Emitter struct{}

// NewEmitter creates an Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Write renders scores to w in the given order, header first.
func (e *Emitter) Write(w io.Writer, scores []model.SessionScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoreHeader); err != nil {
		return fmt.Errorf("write score header: %w", err)
	}
	for i := range scores {
		if err := cw.Write(scoreRow(&scores[i])); err != nil {
			return fmt.Errorf("write score for session %d: %w", scores[i].SessionID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush scores: %w", err)
	}
	return nil
}

// WriteFile replaces path with the score table. The table is written to a
// temporary file in the same directory and renamed into place, so readers
// never observe a partial file.
func (e *Emitter) WriteFile(path string, scores []model.SessionScore) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordStageDuration("emit", float64(time.Since(start).Microseconds())/1000)
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = e.Write(tmp, scores); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // score tables are world readable
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}

	metrics.RecordRowsEmitted(len(scores))
	return nil
}
