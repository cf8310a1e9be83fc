package signals

import "errors"

// Sentinel kinds for signal extraction errors.
var (
	ErrEmptySession = errors.New("session has no records")
)
