package device

import (
	"context"
	"fmt"
)

// StateID identifies a state variant.
type StateID string

// State variants known to the controller.
const (
	StateBootSelect    StateID = "boot_select"
	StateDiagnostics   StateID = "diagnostics"
	StateConfiguration StateID = "configuration"
	StateFactoryReset  StateID = "factory_reset"
	StateOperation     StateID = "operation"
	StateError         StateID = "error"
)

// State is a unit of device behaviour driven by the run loop.
//
// Enter and Exit failures are logged and suppressed by the loop. Exec
// failures are classified by the loop: ErrRestartRequested stops it, any
// other error switches the device to the Error state.
//
// A state may call Device.Transition or Device.ChangeState from Exec. The
// new state is entered on the next loop iteration.
type State interface {
	Name() StateID
	Enter(ctx context.Context) error
	Exec(ctx context.Context) error
	Exit(ctx context.Context) error
}

// Factory builds a state bound to the given device.
type Factory func(d *Device) State

// ChangeState replaces the live state.
//
// The live state's Exit is called first and its failure is only logged.
// The new state is installed unconditionally; Enter is not called here,
// the run loop does that immediately before the next Exec.
func (d *Device) ChangeState(next State) error {
	if next == nil {
		return ErrNilState
	}

	prev := d.state
	if prev != nil {
		d.exitState(context.Background(), prev)
	}
	d.state = next

	d.logger.Info("state changed",
		"from", stateName(prev),
		"to", next.Name(),
	)
	return nil
}

// Transition builds the state registered under id and installs it with
// ChangeState.
//
// Returns:
//   - error: ErrStateUnavailable if no factory is registered for id
func (d *Device) Transition(id StateID) error {
	factory, ok := d.factories[id]
	if !ok || factory == nil {
		return fmt.Errorf("%w: %s", ErrStateUnavailable, id)
	}

	next := factory(d)
	if next == nil {
		return fmt.Errorf("%w: %s factory returned nil", ErrStateUnavailable, id)
	}
	return d.ChangeState(next)
}

// HasState reports whether a factory is registered for id.
func (d *Device) HasState(id StateID) bool {
	f, ok := d.factories[id]
	return ok && f != nil
}

// Fail records code and switches to the Error state. States call it from
// Exec and return its result. When the Error state cannot be reached the
// fault is returned so the run loop handles it.
func (d *Device) Fail(code string, cause error) error {
	d.errorCode = code
	if err := d.Transition(StateError); err != nil {
		d.logger.Error("cannot switch to error state",
			"code", code,
			"error", err,
		)
		if cause != nil {
			err = fmt.Errorf("%w (%w)", cause, err)
		}
		return NewFault(code, err)
	}
	return nil
}

// exitState calls Exit on s, logging any failure.
func (d *Device) exitState(ctx context.Context, s State) {
	if err := s.Exit(ctx); err != nil {
		d.logger.Warn("state exit failed",
			"state", s.Name(),
			"error", err,
		)
	}
}

func stateName(s State) StateID {
	if s == nil {
		return ""
	}
	return s.Name()
}
