package dht

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio"
)

// Model selects the sensor variant.
type Model int

// Supported sensor models.
const (
	DHT11 Model = iota + 1
	DHT22
)

// String returns the lower-case model name.
func (m Model) String() string {
	switch m {
	case DHT11:
		return "dht11"
	case DHT22:
		return "dht22"
	default:
		return fmt.Sprintf("dht(%d)", int(m))
	}
}

// ParseModel maps a driver name ("dht11", "DHT22") to a Model.
func ParseModel(name string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dht11":
		return DHT11, nil
	case "dht22", "am2302":
		return DHT22, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// Timing constants of the single-wire protocol.
const (
	frameBits = 40

	// bitThreshold separates a 0 bit (~27µs high) from a 1 bit (~70µs high).
	bitThreshold = 50 * time.Microsecond

	// frameTimeout bounds the capture of one frame (~5ms on the wire).
	frameTimeout = 20 * time.Millisecond

	// maxPolls bounds the capture loop on hosts where the clock is coarse.
	maxPolls = 1 << 20
)

// startPulse is how long the host holds the line low to request a sample.
func (m Model) startPulse() time.Duration {
	if m == DHT11 {
		return 18 * time.Millisecond
	}
	return 2 * time.Millisecond
}

// minInterval is the shortest supported time between two samples.
func (m Model) minInterval() time.Duration {
	if m == DHT11 {
		return time.Second
	}
	return 2 * time.Second
}

// Sensor is a DHT11/DHT22 attached to one GPIO pin.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Sensor struct {
	pin   gpio.PinIO
	model Model
	clock clock.Clock

	mu       sync.Mutex
	temp     float64
	humidity float64
	measured bool
	last     time.Time
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithClock sets the clock used to rate-limit measurements.
func WithClock(c clock.Clock) Option {
	return func(s *Sensor) {
		s.clock = c
	}
}

// New creates a sensor driver on pin.
//
// Parameters:
//   - pin: The data line, wired with a pull-up resistor
//   - model: DHT11 or DHT22
//
// Returns:
//   - *Sensor: The driver, not yet sampled
//   - error: ErrNilPin or ErrUnknownModel
func New(pin gpio.PinIO, model Model, opts ...Option) (*Sensor, error) {
	if pin == nil {
		return nil, ErrNilPin
	}
	if model != DHT11 && model != DHT22 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(model))
	}

	s := &Sensor{
		pin:   pin,
		model: model,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Release the line so the sensor can settle before the first sample.
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("dht: configuring %s: %w", pin.Name(), err)
	}
	return s, nil
}

// Model returns the sensor model.
func (s *Sensor) Model() Model {
	return s.model
}

// Measure reads a new frame from the sensor. Calls closer together than the
// model's minimum interval keep the previous values.
func (s *Sensor) Measure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.measured && now.Sub(s.last) < s.model.minInterval() {
		return nil
	}

	highs, err := s.capture()
	if err != nil {
		return err
	}
	frame, err := bitsFromIntervals(highs)
	if err != nil {
		return err
	}
	temp, humidity, err := decode(frame, s.model)
	if err != nil {
		return err
	}

	s.temp, s.humidity = temp, humidity
	s.measured = true
	s.last = now
	return nil
}

// Temperature returns the last measured temperature in degrees Celsius.
func (s *Sensor) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.measured {
		return 0, ErrNotMeasured
	}
	return s.temp, nil
}

// Humidity returns the last measured relative humidity in percent.
func (s *Sensor) Humidity() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.measured {
		return 0, ErrNotMeasured
	}
	return s.humidity, nil
}

// capture sends the start signal and records the width of every high pulse
// until a full frame was seen or the frame timeout expired.
func (s *Sensor) capture() ([]time.Duration, error) {
	if err := s.pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("dht: start signal: %w", err)
	}
	time.Sleep(s.model.startPulse())
	if err := s.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("dht: releasing line: %w", err)
	}

	// Host release, response high and one high pulse per bit.
	const want = frameBits + 2

	highs := make([]time.Duration, 0, want)
	level := s.pin.Read()
	since := time.Now()
	deadline := since.Add(frameTimeout)

	for i := 0; i < maxPolls && len(highs) < want; i++ {
		l := s.pin.Read()
		now := time.Now()
		if now.After(deadline) {
			break
		}
		if l == level {
			continue
		}
		if level == gpio.High {
			highs = append(highs, now.Sub(since))
		}
		level, since = l, now
	}

	// The final bit ends when the sensor pulls the line low.
	if level == gpio.High && len(highs) < want {
		highs = append(highs, time.Since(since))
	}
	if len(highs) < frameBits {
		return nil, fmt.Errorf("%w: %d of %d bits", ErrTimeout, len(highs), frameBits)
	}
	return highs, nil
}

// bitsFromIntervals turns the last 40 high pulse widths into a 5-byte frame.
func bitsFromIntervals(highs []time.Duration) ([5]byte, error) {
	var frame [5]byte
	if len(highs) < frameBits {
		return frame, fmt.Errorf("%w: %d of %d bits", ErrTimeout, len(highs), frameBits)
	}

	bits := highs[len(highs)-frameBits:]
	for i, width := range bits {
		frame[i/8] <<= 1
		if width > bitThreshold {
			frame[i/8] |= 1
		}
	}
	return frame, nil
}

// decode validates the checksum and converts a frame to temperature (°C)
// and relative humidity (%).
func decode(frame [5]byte, model Model) (temp, humidity float64, err error) {
	sum := frame[0] + frame[1] + frame[2] + frame[3]
	if sum != frame[4] {
		return 0, 0, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, frame[4], sum)
	}

	switch model {
	case DHT11:
		humidity = float64(frame[0]) + float64(frame[1])/10
		temp = float64(frame[2]) + float64(frame[3]&0x7f)/10
		if frame[3]&0x80 != 0 {
			temp = -temp
		}
	case DHT22:
		humidity = float64(uint16(frame[0])<<8|uint16(frame[1])) / 10
		temp = float64(uint16(frame[2]&0x7f)<<8|uint16(frame[3])) / 10
		if frame[2]&0x80 != 0 {
			temp = -temp
		}
	default:
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownModel, int(model))
	}
	return temp, humidity, nil
}
