package modes

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/thsensor/internal/device"
)

// Configuration runs the settings portal until a valid settings document
// is submitted or the portal times out.
type Configuration struct {
	d    *device.Device
	deps Deps
}

// NewConfiguration returns the factory of the Configuration state.
func NewConfiguration(deps Deps) device.Factory {
	return func(d *device.Device) device.State {
		return &Configuration{d: d, deps: deps}
	}
}

// Name returns StateConfiguration.
func (s *Configuration) Name() device.StateID {
	return device.StateConfiguration
}

// Enter shows cyan.
func (s *Configuration) Enter(_ context.Context) error {
	s.d.Indicate(device.ColorCyan)
	return nil
}

// Exec serves the portal and blocks until one of:
//   - a submission arrives: it is saved, installed and Diagnostics follows
//   - the portal timeout elapses: BootSelect follows
//   - ctx is cancelled: ctx.Err() is returned
//
// A portal that cannot be built or started fails with portal_failed; a
// submission that cannot be persisted fails with storage_failed.
func (s *Configuration) Exec(ctx context.Context) error {
	if s.deps.NewPortal == nil {
		return s.d.Fail(device.FaultPortalFailed, errors.New("no portal configured"))
	}

	var timeout <-chan time.Time
	if s.deps.PortalTimeout > 0 {
		t := s.d.Clock().Timer(s.deps.PortalTimeout)
		defer t.Stop()
		timeout = t.C
	}

	p, err := s.deps.NewPortal(s.d)
	if err != nil {
		return s.d.Fail(device.FaultPortalFailed, err)
	}
	if err := p.Start(ctx); err != nil {
		return s.d.Fail(device.FaultPortalFailed, err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			s.d.Logger().Warn("closing portal failed", "error", err)
		}
	}()
	s.d.Logger().Info("configuration portal started", "timeout", s.deps.PortalTimeout)

	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-timeout:
		s.d.Logger().Info("configuration portal timed out")
		return s.d.Transition(device.StateBootSelect)

	case sub := <-p.Submissions():
		m, err := sub.Settings.ToMap()
		if err != nil {
			return s.d.Fail(device.FaultSettingsInvalid, err)
		}
		if s.deps.Store != nil {
			if err := s.deps.Store.Save(m); err != nil {
				return s.d.Fail(device.FaultStorageFailed, err)
			}
		}
		s.d.SetSettings(m)
		s.d.Logger().Info("settings saved",
			"department", sub.Settings.Department,
			"room", sub.Settings.Room,
		)
		return s.d.Transition(device.StateDiagnostics)
	}
}

// Exit does nothing; the portal is closed by Exec.
func (s *Configuration) Exit(_ context.Context) error {
	return nil
}
