package influxdb

import "errors"

// Domain errors for the influxdb package.
var (
	// ErrDisabled is returned by Connect when export is switched off.
	ErrDisabled = errors.New("influxdb: export disabled")

	// ErrConnectionFailed is returned when the server does not answer the initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by operations on a closed client.
	ErrNotConnected = errors.New("influxdb: not connected")
)
