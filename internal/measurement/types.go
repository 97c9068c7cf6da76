package measurement

import "time"

// Measurement is one stored sensor sample.
type Measurement struct {
	ID     int64
	NodeID string

	TakenAt time.Time

	// Temperature in degrees Celsius, regardless of Units.
	Temperature float64

	// Humidity is relative humidity in percent.
	Humidity float64

	// Units is the unit system the sample was reported in.
	Units string

	// Published is set once the sample reached the broker.
	Published bool
}

// FaultEvent is a fault handled by the Error state.
type FaultEvent struct {
	ID         int64
	NodeID     string
	Code       string
	OccurredAt time.Time
}
