// Package telemetry delivers samples and faults off the node.
//
// The MQTT broker is part of the user settings, so the connection is made
// lazily on the first publish and rebuilt whenever the broker settings
// change. InfluxDB export, when configured, receives every sample as well.
package telemetry
