package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check exceeded its timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckPanicked indicates a health check panicked.
	ErrCheckPanicked = errors.New("health: check panicked")

	// ErrInvalidTimeout indicates a checker was registered with a negative timeout.
	ErrInvalidTimeout = errors.New("health: invalid check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrAlreadyFailedOver indicates the endpoint is already on its backup URL.
	ErrAlreadyFailedOver = errors.New("health: endpoint already failed over")

	// ErrValueMismatch indicates the cache probe read back a different value.
	ErrValueMismatch = errors.New("health: cache round-trip value mismatch")
)
