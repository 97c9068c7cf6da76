package device

import (
	"context"
	"errors"
	"fmt"
)

// Run drives the state machine until a state requests a restart, the
// context is cancelled, or a fault cannot be routed to the Error state.
//
// Each iteration enters the live state, executes it and, when Exec did not
// switch to another state, exits it again. Enter and Exit failures are only
// logged. After every iteration the loop pauses for the cycle delay.
//
// Parameters:
//   - ctx: Context for external interruption (checked between iterations)
//
// Returns:
//   - error: nil after a restart request or when no state is live,
//     ctx.Err() on cancellation, or the fault that could not be handled
func (d *Device) Run(ctx context.Context) error {
	d.logger.Info("device run loop started", "state", stateName(d.state))

	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("device run loop interrupted", "state", stateName(d.state))
			return err
		}
		if d.state == nil {
			d.logger.Warn("no live state, stopping run loop")
			return nil
		}

		if err := d.cycle(ctx); err != nil {
			switch {
			case errors.Is(err, ErrRestartRequested):
				d.logger.Info("restart requested, stopping run loop")
				return nil
			case ctx.Err() != nil:
				d.logger.Info("device run loop interrupted", "state", stateName(d.state))
				return ctx.Err()
			}

			d.errorCode = FaultCode(err)
			d.logger.Error("unhandled state failure",
				"state", stateName(d.state),
				"code", d.errorCode,
				"error", err,
			)
			if terr := d.Transition(StateError); terr != nil {
				d.logger.Error("cannot switch to error state", "error", terr)
				return fmt.Errorf("%w: %w", terr, err)
			}
		}

		d.clock.Sleep(d.cycleDelay)
	}
}

// cycle runs one enter/exec/exit round on the live state.
//
// The post-exec Exit is skipped when Exec installed another state: the
// previous state has then already been exited by ChangeState, and the new
// one has not been entered yet.
func (d *Device) cycle(ctx context.Context) error {
	current := d.state

	if err := current.Enter(ctx); err != nil {
		d.logger.Warn("state enter failed",
			"state", current.Name(),
			"error", err,
		)
	}

	if err := d.exec(ctx, current); err != nil {
		return err
	}

	if d.state == current {
		d.exitState(ctx, current)
	}
	return nil
}

// exec runs Exec, converting a panic into an untagged fault.
func (d *Device) exec(ctx context.Context, s State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("state exec panic recovered",
				"state", s.Name(),
				"panic", r,
			)
			err = fmt.Errorf("%s: panic: %v", s.Name(), r)
		}
	}()
	return s.Exec(ctx)
}
