package monitor

import "errors"

// ErrTargetNotFound is returned by ServiceStatus for an unregistered target.
var ErrTargetNotFound = errors.New("monitor: target not found")
