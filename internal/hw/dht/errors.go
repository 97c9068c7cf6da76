package dht

import "errors"

// Domain errors for the dht package.
var (
	// ErrNilPin is returned when a sensor is created without a data pin.
	ErrNilPin = errors.New("dht: nil data pin")

	// ErrUnknownModel is returned for a model other than DHT11 or DHT22.
	ErrUnknownModel = errors.New("dht: unknown model")

	// ErrTimeout is returned when the sensor did not send a full frame.
	ErrTimeout = errors.New("dht: timed out waiting for sensor")

	// ErrChecksum is returned when the frame checksum does not match.
	ErrChecksum = errors.New("dht: checksum mismatch")

	// ErrNotMeasured is returned when values are read before the first
	// successful measurement.
	ErrNotMeasured = errors.New("dht: no measurement yet")
)
