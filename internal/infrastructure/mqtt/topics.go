package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the node publishes.
const TopicPrefix = "thsensor"

// unassigned replaces an empty topic segment.
const unassigned = "unassigned"

// Topics provides builders for node MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Measurement("lab", "r101", "node-1")
//	// Returns: "thsensor/lab/r101/node-1"
type Topics struct{}

// Measurement returns the topic for samples from a node.
//
// Example: thsensor/lab/r101/node-1
func (Topics) Measurement(department, room, nodeID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, segment(department), segment(room), segment(nodeID))
}

// Status returns the retained online/offline topic for a node.
//
// Example: thsensor/status/node-1
func (Topics) Status(nodeID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, segment(nodeID))
}

// Fault returns the topic for faults reported by a node.
//
// Example: thsensor/fault/node-1
func (Topics) Fault(nodeID string) string {
	return fmt.Sprintf("%s/fault/%s", TopicPrefix, segment(nodeID))
}

// AllMeasurements returns a pattern matching samples from every node.
//
// Pattern: thsensor/+/+/+
func (Topics) AllMeasurements() string {
	return TopicPrefix + "/+/+/+"
}

// segment makes a settings value safe to use as one topic level: the MQTT
// separators and wildcards are replaced and an empty value becomes
// "unassigned".
func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unassigned
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
