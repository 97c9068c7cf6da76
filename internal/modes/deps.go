package modes

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nerrad567/thsensor/internal/device"
	"github.com/nerrad567/thsensor/internal/measurement"
	"github.com/nerrad567/thsensor/internal/portal"
	"github.com/nerrad567/thsensor/internal/settings"
	"github.com/nerrad567/thsensor/internal/telemetry"
)

// Defaults applied to zero Deps fields.
const (
	DefaultErrorRetryDelay = 10 * time.Second

	// backlogBatch bounds how many unpublished samples are replayed after
	// a successful publish.
	backlogBatch = 10

	// unknownFault is logged when the Error state is entered without a code.
	unknownFault = "unknown"
)

// SettingsSaver persists the settings map.
type SettingsSaver interface {
	Save(m map[string]any) error
}

// Portal is the configuration portal as seen by the Configuration state.
type Portal interface {
	Start(ctx context.Context) error
	Submissions() <-chan portal.Submission
	Close() error
}

// PortalFactory builds a portal for the device. It is called each time
// the Configuration state runs.
type PortalFactory func(d *device.Device) (Portal, error)

// Recorder stores samples and faults locally.
type Recorder interface {
	Record(ctx context.Context, m measurement.Measurement) (int64, error)
	MarkPublished(ctx context.Context, id int64) error
	Unpublished(ctx context.Context, limit int) ([]measurement.Measurement, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	RecordFault(ctx context.Context, e measurement.FaultEvent) (int64, error)
}

// Publisher sends samples and faults off the node.
type Publisher interface {
	PublishMeasurement(s settings.Settings, sample telemetry.Sample) error
	PublishFault(s *settings.Settings, code string, at time.Time) error
}

// Deps holds the collaborators of the working states.
type Deps struct {
	// NodeID is stored with every sample and fault.
	NodeID string

	// Store persists settings accepted by the portal.
	Store SettingsSaver

	// NewPortal builds the configuration portal.
	NewPortal PortalFactory

	// PortalTimeout returns to boot selection when no settings arrive in
	// time. Zero waits forever.
	PortalTimeout time.Duration

	// Recorder keeps samples and faults. Optional.
	Recorder Recorder

	// Retention prunes stored rows older than this after each sample.
	// Zero keeps everything.
	Retention time.Duration

	// Publisher reports samples and faults. Optional.
	Publisher Publisher

	// ErrorRetryDelay is the Error state's wait before rebooting.
	// Defaults to DefaultErrorRetryDelay.
	ErrorRetryDelay time.Duration
}

// States returns factories for Configuration, Operation and Error.
func States(deps Deps) map[device.StateID]device.Factory {
	return map[device.StateID]device.Factory{
		device.StateConfiguration: NewConfiguration(deps),
		device.StateOperation:     NewOperation(deps),
		device.StateError:         NewError(deps),
	}
}

// sleep waits for d on clk. It returns ctx.Err() if ctx ends first.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clk.Timer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CurrentSettings decodes the device settings, reporting false when the
// node is unconfigured or the stored map is invalid.
func CurrentSettings(d *device.Device) (settings.Settings, bool) {
	raw, ok := d.SettingsMap()
	if !ok {
		return settings.Settings{}, false
	}
	s, err := settings.Decode(raw)
	if err != nil {
		return settings.Settings{}, false
	}
	return s, true
}
