package board

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Button is a momentary push button on a GPIO input.
type Button struct {
	pin       gpio.PinIO
	activeLow bool
}

// NewButton configures pin as an input. An active-low button is wired to
// ground and uses the internal pull-up; an active-high one uses the pull-down.
func NewButton(pin gpio.PinIO, activeLow bool) (*Button, error) {
	if pin == nil {
		return nil, ErrNilPin
	}

	pull := gpio.PullDown
	if activeLow {
		pull = gpio.PullUp
	}
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configuring button %s: %w", pin.Name(), err)
	}
	return &Button{pin: pin, activeLow: activeLow}, nil
}

// Pressed reports whether the button is currently held down.
func (b *Button) Pressed() (bool, error) {
	level := b.pin.Read()
	if b.activeLow {
		return level == gpio.Low, nil
	}
	return level == gpio.High, nil
}
