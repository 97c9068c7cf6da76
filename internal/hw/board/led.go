package board

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/nerrad567/thsensor/internal/device"
)

// pwmFrequency drives the LED channels for intermediate intensities.
const pwmFrequency = 1 * physic.KiloHertz

// RGB is a three-channel status LED with one GPIO per colour.
//
// Full and zero intensities are plain digital levels. Intermediate ones use
// PWM where the pin supports it and fall back to fully on otherwise.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type RGB struct {
	mu      sync.Mutex
	pins    [3]gpio.PinIO
	current device.Color
}

// NewRGB creates the LED and switches it off.
func NewRGB(r, g, b gpio.PinIO) (*RGB, error) {
	if r == nil || g == nil || b == nil {
		return nil, ErrNilPin
	}
	led := &RGB{pins: [3]gpio.PinIO{r, g, b}}
	if err := led.SetColor(device.ColorOff); err != nil {
		return nil, err
	}
	return led, nil
}

// SetColor implements device.Indicator.
func (l *RGB) SetColor(c device.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		if err := drive(l.pins[i], v); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", l.pins[i].Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	l.current = c
	return nil
}

// Color returns the colour last shown successfully.
func (l *RGB) Color() device.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func drive(pin gpio.PinIO, v uint8) error {
	switch v {
	case 0:
		return pin.Out(gpio.Low)
	case 255:
		return pin.Out(gpio.High)
	}

	duty := gpio.Duty(int64(v) * int64(gpio.DutyMax) / 255)
	if err := pin.PWM(duty, pwmFrequency); err != nil {
		return pin.Out(gpio.High)
	}
	return nil
}

// LogIndicator reports colour changes through a logger. It stands in for
// the LED on hosts without one.
type LogIndicator struct {
	mu     sync.Mutex
	logger device.Logger
	last   device.Color
	shown  bool
}

// NewLogIndicator creates a LogIndicator.
func NewLogIndicator(logger device.Logger) *LogIndicator {
	return &LogIndicator{logger: logger}
}

// SetColor implements device.Indicator. Repeated colours are not logged.
func (l *LogIndicator) SetColor(c device.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shown && l.last == c {
		return nil
	}
	l.last, l.shown = c, true
	l.logger.Info("status indicator", "color", c.String())
	return nil
}
