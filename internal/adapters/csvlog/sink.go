package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/okian/kartscore/internal/domain/model"
)

// Sink appends telemetry records to a table, one row per frame. It is the
// writing half of the sampler contract and is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	f      *os.File
	w      *csv.Writer
	closed bool
}

// OpenSink opens path for appending, creating it when missing. The header is
// written only when the file is empty.
func OpenSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // telemetry logs are world readable
	if err != nil {
		return nil, fmt.Errorf("open telemetry sink: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat telemetry sink: %w", err)
	}

	s := &Sink{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := s.w.Write(TelemetryHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write telemetry header: %w", err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write telemetry header: %w", err)
		}
	}
	return s, nil
}

// Append buffers one record. Call Flush to push buffered rows to disk.
func (s *Sink) Append(rec *model.TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.w.Write(telemetryRow(rec)); err != nil {
		return fmt.Errorf("append telemetry: %w", err)
	}
	return nil
}

// Flush writes buffered rows to the file.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the file. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("flush telemetry sink: %w", err)
	}
	return s.f.Close()
}
