package device

import (
	"context"
	"path/filepath"
	"time"
)

// ConventionalSettingsFiles are tried in order, relative to the work
// directory, when no other settings location is known.
var ConventionalSettingsFiles = []string{
	"settings.json",
	"config.json",
	"settings.cfg",
	"settings.txt",
}

// resetDelay keeps the reset colour visible before the restart.
const resetDelay = 100 * time.Millisecond

// FactoryReset wipes the persisted settings and requests a restart.
type FactoryReset struct {
	device *Device
}

// NewFactoryReset creates the FactoryReset state.
func NewFactoryReset(d *Device) State {
	return &FactoryReset{device: d}
}

// Name implements State.
func (s *FactoryReset) Name() StateID {
	return StateFactoryReset
}

// Enter shows the "resetting" colour.
func (s *FactoryReset) Enter(_ context.Context) error {
	s.device.Indicate(ColorOrange)
	return nil
}

// Exec removes the settings and always returns ErrRestartRequested.
// Deletion failures are logged and never stop the reset.
func (s *FactoryReset) Exec(_ context.Context) error {
	d := s.device

	s.removeSettings()
	d.settings = nil
	d.logger.Info("factory reset complete, restart requested")

	d.clock.Sleep(resetDelay)
	return ErrRestartRequested
}

// Exit implements State.
func (s *FactoryReset) Exit(_ context.Context) error {
	return nil
}

func (s *FactoryReset) removeSettings() {
	d := s.device

	switch {
	case d.removeSettings != nil:
		if err := d.removeSettings(); err != nil {
			d.logger.Warn("settings removal failed", "error", err)
		}

	case len(d.settingsFiles) > 0:
		for _, path := range d.settingsFiles {
			if err := d.fs.Remove(path); err != nil {
				d.logger.Warn("settings file removal failed",
					"path", path,
					"error", err,
				)
				continue
			}
			d.logger.Info("settings file removed", "path", path)
		}

	default:
		for _, name := range ConventionalSettingsFiles {
			path := filepath.Join(d.workDir, name)
			if err := d.fs.Remove(path); err != nil {
				d.logger.Debug("settings file not removed", "path", path, "error", err)
				continue
			}
			d.logger.Info("settings file removed", "path", path)
			return
		}
	}
}
