package board

import "errors"

// Domain errors for the board package.
var (
	// ErrPinNotFound is returned when a configured pin does not exist on the host.
	ErrPinNotFound = errors.New("board: pin not found")

	// ErrNilPin is returned when a component is created without a pin.
	ErrNilPin = errors.New("board: nil pin")
)
