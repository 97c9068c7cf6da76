package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Point measurement names.
const (
	measurementEnvironment = "environment"
	measurementFault       = "fault"
)

// Sample is one validated reading ready for export. Temperature is always
// degrees Celsius; Units records what the node reports to its users.
type Sample struct {
	NodeID     string
	Department string
	Room       string
	Units      string

	Temperature float64
	Humidity    float64

	// TakenAt defaults to the current time when zero.
	TakenAt time.Time
}

// WriteMeasurement queues a sample. The write is non-blocking; data is
// batched and sent asynchronously.
func (c *Client) WriteMeasurement(s Sample) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(samplePoint(s))
}

// WriteFault queues a fault counter point for the node.
func (c *Client) WriteFault(nodeID, code string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(faultPoint(nodeID, code, at))
}

func samplePoint(s Sample) *write.Point {
	tags := map[string]string{"node_id": s.NodeID}
	if s.Department != "" {
		tags["department"] = s.Department
	}
	if s.Room != "" {
		tags["room"] = s.Room
	}
	if s.Units != "" {
		tags["units"] = s.Units
	}

	return write.NewPoint(
		measurementEnvironment,
		tags,
		map[string]any{
			"temperature": s.Temperature,
			"humidity":    s.Humidity,
		},
		timestampOrNow(s.TakenAt),
	)
}

func faultPoint(nodeID, code string, at time.Time) *write.Point {
	return write.NewPoint(
		measurementFault,
		map[string]string{
			"node_id": nodeID,
			"code":    code,
		},
		map[string]any{"count": int64(1)},
		timestampOrNow(at),
	)
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
