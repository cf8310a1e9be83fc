package service

import "errors"

// Sentinel kinds for pipeline errors.
var (
	ErrMissingPath = errors.New("input and output paths are required")
	ErrScoring     = errors.New("scoring failed")
)
