package board

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Periph is the periph.io host platform.
//
// Thread Safety:
//   - Init may be called from any goroutine; host drivers load once.
type Periph struct {
	once sync.Once
	err  error
}

// NewPeriph creates the platform. Host drivers are loaded on the first Init.
func NewPeriph() *Periph {
	return &Periph{}
}

// Init loads the periph.io host drivers. Repeated calls return the result
// of the first one.
func (p *Periph) Init() error {
	p.once.Do(func() {
		if _, err := host.Init(); err != nil {
			p.err = fmt.Errorf("periph host init: %w", err)
		}
	})
	return p.err
}

// PinByName returns the named pin ("GPIO4", "P1_7"), or nil.
func (p *Periph) PinByName(name string) gpio.PinIO {
	return gpioreg.ByName(name)
}

// Pin initialises the host and resolves a pin, reporting a missing pin as
// an error.
func (p *Periph) Pin(name string) (gpio.PinIO, error) {
	if err := p.Init(); err != nil {
		return nil, err
	}
	pin := p.PinByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return pin, nil
}
