package telemetry

import "errors"

var (
	// ErrNoBroker is returned when neither the settings nor the node
	// configuration name an MQTT broker.
	ErrNoBroker = errors.New("telemetry: no mqtt broker configured")

	// ErrClosed is returned when publishing after Close.
	ErrClosed = errors.New("telemetry: publisher closed")
)
