package recovery

import "errors"

var (
	// ErrInvalidAction is returned by Register for an incomplete Action.
	ErrInvalidAction = errors.New("recovery: invalid action")

	// ErrDuplicateAction is returned by Register when the ID is taken.
	ErrDuplicateAction = errors.New("recovery: duplicate action")

	// ErrActionNotFound is returned for an unknown action ID.
	ErrActionNotFound = errors.New("recovery: action not found")
)
