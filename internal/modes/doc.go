// Package modes provides the node's working states: the Configuration
// portal, periodic Operation and the Error state.
//
// The device package owns the state machine and the boot-time states.
// The states here are registered with it through device.Options.States:
//
//	dev, err := device.New(device.Options{
//	    States: modes.States(modes.Deps{
//	        NodeID:    nodeID,
//	        Store:     store,
//	        NewPortal: newPortal,
//	        Recorder:  repo,
//	        Publisher: pub,
//	    }),
//	})
//
// Every collaborator in Deps is optional. Storage and telemetry failures
// in Operation and Error are logged and never stop the device.
package modes
