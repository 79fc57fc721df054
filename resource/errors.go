package resource

import "errors"

var (
	// ErrCollectorPanicked is returned by Sample when the collector panics.
	ErrCollectorPanicked = errors.New("resource: collector panicked")

	// ErrInvalidThreshold is returned by Thresholds.Validate.
	ErrInvalidThreshold = errors.New("resource: invalid threshold")
)
