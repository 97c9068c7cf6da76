// Package device implements the sensor node controller and its state machine.
//
// A Device owns exactly one live State and the node-wide resources every
// state works with: the sensor handle, the status indicator, the push
// button, the persisted settings and the last fault tag.
//
// Built-in states:
//   - BootSelect: picks the next mode from the button hold time and the
//     presence of settings
//   - Diagnostics: acquires the sensor and checks a first sample
//   - FactoryReset: wipes the settings and requests a restart
//
// Configuration, Operation and Error are registered by the caller through
// Options.States.
//
// Run drives the live state through Enter, Exec and Exit until a state
// returns ErrRestartRequested or the context is cancelled. Any other Exec
// failure switches the device to the Error state, with the tag carried by
// a *Fault stored as the error code.
//
// Example usage:
//
//	dev, err := device.New(device.Options{
//	    Logger:    log,
//	    Indicator: led,
//	    Button:    btn,
//	    Settings:  stored,
//	    Platform:  board.NewPeriph(),
//	    States: map[device.StateID]device.Factory{
//	        device.StateConfiguration: modes.NewConfiguration(deps),
//	        device.StateOperation:     modes.NewOperation(deps),
//	        device.StateError:         modes.NewError(deps),
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	return dev.Run(ctx)
package device
