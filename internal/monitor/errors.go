package monitor

import "github.com/pkg/errors"

// Lifecycle misuse by the owning subscription. These are raised as panics.
var (
	ErrNotAttached     = errors.New("monitored item is not attached to a node")
	ErrAlreadyAttached = errors.New("monitored item is already attached")
	ErrNotStarted      = errors.New("monitoring mode was never set")
	ErrNoTimer         = errors.New("no sampling timer configured")
)
