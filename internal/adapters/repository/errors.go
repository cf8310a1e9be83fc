package repository

import "errors"

// Sentinel kinds for score store errors.
var (
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrSlotTaken      = errors.New("slot already filled")
	ErrUnknownOrder   = errors.New("unknown order")
)
