package modes

import (
	"context"
	"errors"

	"github.com/nerrad567/thsensor/internal/device"
	"github.com/nerrad567/thsensor/internal/measurement"
	"github.com/nerrad567/thsensor/internal/settings"
	"github.com/nerrad567/thsensor/internal/telemetry"
)

// Error reports the last fault, waits and reboots into boot selection.
type Error struct {
	d    *device.Device
	deps Deps
}

// NewError returns the factory of the Error state.
func NewError(deps Deps) device.Factory {
	return func(d *device.Device) device.State {
		return &Error{d: d, deps: deps}
	}
}

// Name returns StateError.
func (s *Error) Name() device.StateID {
	return device.StateError
}

// Enter shows red.
func (s *Error) Enter(_ context.Context) error {
	s.d.Indicate(device.ColorRed)
	return nil
}

// Exec logs and reports the error code, waits for the retry delay, clears
// the code and transitions to BootSelect.
func (s *Error) Exec(ctx context.Context) error {
	code := s.d.ErrorCode()
	if code == "" {
		code = unknownFault
	}
	now := s.d.Clock().Now()
	s.d.Logger().Error("device fault", "code", code)

	if s.deps.Recorder != nil {
		if _, err := s.deps.Recorder.RecordFault(ctx, measurement.FaultEvent{
			NodeID:     s.deps.NodeID,
			Code:       code,
			OccurredAt: now,
		}); err != nil {
			s.d.Logger().Warn("recording fault failed", "error", err)
		}
	}

	if s.deps.Publisher != nil {
		var cfg *settings.Settings
		if cur, ok := CurrentSettings(s.d); ok {
			cfg = &cur
		}
		err := s.deps.Publisher.PublishFault(cfg, code, now)
		switch {
		case err == nil:
		case errors.Is(err, telemetry.ErrNoBroker):
			s.d.Logger().Debug("no broker configured, fault kept locally")
		default:
			s.d.Logger().Warn("publishing fault failed", "error", err)
		}
	}

	delay := s.deps.ErrorRetryDelay
	if delay <= 0 {
		delay = DefaultErrorRetryDelay
	}
	if err := sleep(ctx, s.d.Clock(), delay); err != nil {
		return err
	}

	s.d.SetErrorCode("")
	return s.d.Transition(device.StateBootSelect)
}

// Exit does nothing.
func (s *Error) Exit(_ context.Context) error {
	return nil
}
