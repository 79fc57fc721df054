package store

import "errors"

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")

	// ErrEmptyDSN is returned when no connection string is configured.
	ErrEmptyDSN = errors.New("store: empty dsn")

	// ErrUnsupportedDriver is returned by Open for an unknown driver name.
	ErrUnsupportedDriver = errors.New("store: unsupported driver")
)
