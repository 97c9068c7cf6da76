package device

import (
	"context"
	"time"
)

// Button gesture thresholds.
const (
	// ShortPressDuration opens the configuration portal.
	ShortPressDuration = 3 * time.Second

	// LongPressDuration triggers a factory reset.
	LongPressDuration = 6 * time.Second

	// buttonPollInterval is how often the button is sampled while held.
	buttonPollInterval = 50 * time.Millisecond
)

// BootSelect is the start-up state. It measures how long the button is
// held and, together with the presence of settings, picks the next mode.
type BootSelect struct {
	device *Device
}

// NewBootSelect creates the BootSelect state.
func NewBootSelect(d *Device) State {
	return &BootSelect{device: d}
}

// Name implements State.
func (s *BootSelect) Name() StateID {
	return StateBootSelect
}

// Enter shows the "starting" colour.
func (s *BootSelect) Enter(_ context.Context) error {
	s.device.Indicate(ColorGreen)
	return nil
}

// Exec samples the button and switches to the selected mode.
func (s *BootSelect) Exec(_ context.Context) error {
	d := s.device
	hold := s.measureHold()

	next := s.decide(hold)
	d.logger.Info("boot mode selected",
		"hold_ms", hold.Milliseconds(),
		"next", next,
	)

	if err := d.Transition(next); err != nil {
		d.logger.Error("boot transition failed", "next", next, "error", err)
		// The error code is left as it was before boot.
		return d.Fail(d.ErrorCode(), err)
	}
	return nil
}

// Exit implements State.
func (s *BootSelect) Exit(_ context.Context) error {
	return nil
}

// measureHold polls the button until it is released or the long-press
// threshold is reached, and returns the hold duration observed while it
// was still pressed. A read error counts as a release.
func (s *BootSelect) measureHold() time.Duration {
	d := s.device
	if d.button == nil {
		return 0
	}

	var (
		hold    time.Duration
		start   time.Time
		started bool
	)
	for {
		pressed, err := d.button.Pressed()
		if err != nil {
			d.logger.Debug("button read failed", "error", err)
			pressed = false
		}
		if !pressed {
			break
		}

		now := d.clock.Now()
		if !started {
			start, started = now, true
		}
		hold = now.Sub(start)

		switch {
		case hold >= LongPressDuration:
			d.Indicate(ColorOrange)
		case hold >= ShortPressDuration:
			d.Indicate(ColorCyan)
		}

		if hold >= LongPressDuration {
			break
		}
		d.clock.Sleep(buttonPollInterval)
	}
	return hold
}

// decide maps the hold duration and settings presence to the next state.
func (s *BootSelect) decide(hold time.Duration) StateID {
	switch {
	case hold >= LongPressDuration:
		return StateFactoryReset
	case hold >= ShortPressDuration:
		return StateConfiguration
	}
	if _, ok := s.device.SettingsMap(); !ok {
		return StateConfiguration
	}
	return StateDiagnostics
}
