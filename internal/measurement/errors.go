package measurement

import "errors"

// Domain errors for the measurement package.
var (
	// ErrNodeIDRequired is returned when a row has no node id.
	ErrNodeIDRequired = errors.New("measurement: node id is required")

	// ErrCodeRequired is returned when a fault event has no code.
	ErrCodeRequired = errors.New("measurement: fault code is required")

	// ErrInvalidRetention is returned when a prune duration is not positive.
	ErrInvalidRetention = errors.New("measurement: retention must be positive")
)
