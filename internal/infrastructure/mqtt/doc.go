// Package mqtt publishes sensor node telemetry to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing measurements and node status with QoS guarantees
//   - Last Will and Testament (LWT) so consumers see a crashed node go offline
//
// The node only publishes; it never subscribes.
//
// # Topics
//
//	thsensor/<department>/<room>/<node-id>   measurement samples
//	thsensor/status/<node-id>                retained online/offline status
//	thsensor/fault/<node-id>                 faults handled by the Error state
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, nodeID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Measurement("lab", "r101", nodeID)
//	err = client.PublishJSON(topic, sample, false)
package mqtt
