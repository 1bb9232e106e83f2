package mapper

import "errors"

var (
	// ErrNoHeaderRow is returned when no row of a sheet meets the detection
	// thresholds. It is per-sheet and non-fatal: callers skip the sheet and
	// proceed with the rest of the template.
	ErrNoHeaderRow = errors.New("no header row found")

	// ErrInvalidThreshold is returned when a confidence threshold outside
	// [0,1] is supplied.
	ErrInvalidThreshold = errors.New("confidence threshold must be within [0,1]")
)
