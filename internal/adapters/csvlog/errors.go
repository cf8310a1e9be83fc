package csvlog

import (
	"errors"
	"fmt"
)

// Sentinel kinds wrapped by MalformedRecordError.
var (
	ErrHeader        = errors.New("unexpected header")
	ErrFieldCount    = errors.New("wrong number of fields")
	ErrSyntax        = errors.New("unparseable row")
	ErrNumber        = errors.New("invalid number")
	ErrBool          = errors.New("invalid boolean")
	ErrDifficulty    = errors.New("invalid difficulty")
	ErrNegativeSpeed = errors.New("negative speed")
)

// ErrSinkClosed is returned when writing to a closed Sink.
var ErrSinkClosed = errors.New("telemetry sink is closed")

// MalformedRecordError reports an input row that does not match the schema.
type MalformedRecordError struct {
	Line   int    // 1-based line in the source
	Column string // column name, empty for row-level problems
	Value  string // offending cell, if any
	Err    error  // one of the sentinels above
}

func (e *MalformedRecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("malformed record at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed record at line %d, column %s (%q): %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
