package device

import (
	"context"
	"errors"
)

// Diagnostics verifies that the sensor can be acquired and returns
// plausible values before normal operation starts.
type Diagnostics struct {
	device *Device
}

// NewDiagnostics creates the Diagnostics state.
func NewDiagnostics(d *Device) State {
	return &Diagnostics{device: d}
}

// Name implements State.
func (s *Diagnostics) Name() StateID {
	return StateDiagnostics
}

// Enter shows the "testing" colour.
func (s *Diagnostics) Enter(_ context.Context) error {
	s.device.Indicate(ColorGreen)
	return nil
}

// Exec samples the sensor once and moves to Operation on success.
// Every failure switches to Error with the fault tag of the failing step.
func (s *Diagnostics) Exec(_ context.Context) error {
	d := s.device

	reading, err := d.Sample()
	if err != nil {
		code := FaultCode(err)
		d.logger.Warn("sensor diagnostics failed",
			"code", code,
			"error", err,
		)
		return d.Fail(code, unwrapFault(err))
	}

	d.logger.Info("sensor diagnostics passed",
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
	)

	if err := d.Transition(StateOperation); err != nil {
		d.logger.Error("operation state unreachable", "error", err)
		return d.Fail(FaultNoOperationState, err)
	}
	return nil
}

// Exit implements State.
func (s *Diagnostics) Exit(_ context.Context) error {
	return nil
}

// unwrapFault returns the cause of a *Fault so it is not wrapped twice.
func unwrapFault(err error) error {
	var f *Fault
	if errors.As(err, &f) && f.Err != nil {
		return f.Err
	}
	return err
}
