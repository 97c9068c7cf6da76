package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrRestartRequested) {
//	    // leave the run loop without rebooting
//	}
var (
	// ErrRestartRequested is the intentional-restart signal. A state returns
	// it from Exec to stop the run loop cleanly. It is never treated as a fault.
	ErrRestartRequested = errors.New("device: restart requested")

	// ErrStateUnavailable is returned when a transition targets a state
	// that has no registered factory.
	ErrStateUnavailable = errors.New("device: state unavailable")

	// ErrNilState is returned when a transition is attempted with a nil state.
	ErrNilState = errors.New("device: nil state")

	// ErrNoPlatform is returned when sensor acquisition falls back to
	// hardware but no platform was configured.
	ErrNoPlatform = errors.New("device: no hardware platform")

	// ErrPinNotFound is returned when the configured sensor pin does not exist.
	ErrPinNotFound = errors.New("device: sensor pin not found")

	// ErrUnknownDriver is returned when the configured sensor driver is not registered.
	ErrUnknownDriver = errors.New("device: unknown sensor driver")

	// ErrInvalidReading is returned when a sensor produced no usable value.
	ErrInvalidReading = errors.New("device: invalid reading")

	// ErrOutOfRange is returned when a reading is outside the accepted range.
	ErrOutOfRange = errors.New("device: reading out of range")
)

// Fault tags recorded in the device error code.
const (
	FaultSensorInitFailed  = "dht_init_failed"
	FaultSensorUnavailable = "dht_unavailable"
	FaultSensorNoDriver    = "dht_module_no_class"
	FaultMeasureFailed     = "dht_measure_failed"
	FaultInvalidReadings   = "dht_invalid_readings"
	FaultTemperatureRange  = "temp_out_of_range"
	FaultHumidityRange     = "hum_out_of_range"
	FaultNoOperationState  = "no_operation_state"
	FaultSettingsInvalid   = "settings_invalid"
	FaultStorageFailed     = "storage_failed"
	FaultPortalFailed      = "portal_failed"
)

// Fault is a failure carrying a short tag that identifies its cause.
// The run loop copies the tag into the device error code before switching
// to the Error state.
type Fault struct {
	// Code is the fault tag, optionally parameterised (e.g. "temp_out_of_range:-5.0").
	Code string

	// Err is the underlying cause, if any.
	Err error
}

// NewFault creates a Fault with the given tag and cause.
func NewFault(code string, err error) *Fault {
	return &Fault{Code: code, Err: err}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("fault %s: %v", f.Code, f.Err)
	}
	return "fault " + f.Code
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// FaultCode returns the tag carried by err, or "" when err carries none.
func FaultCode(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}
