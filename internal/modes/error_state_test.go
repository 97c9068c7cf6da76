package modes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nerrad567/thsensor/internal/device"
)

func newErrorDevice(t *testing.T, mock *clock.Mock, stored any, code string, deps Deps) *device.Device {
	t.Helper()
	deps.NodeID = "n1"
	d := newTestDevice(t, mock, device.Options{Initial: device.StateError, Settings: stored}, deps)
	d.SetErrorCode(code)
	return d
}

func TestError_ReportsAndReboots(t *testing.T) {
	mock := clock.NewMock()
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	d := newErrorDevice(t, mock, configured(), device.FaultSensorUnavailable, Deps{
		Recorder:        rec,
		Publisher:       pub,
		ErrorRetryDelay: 5 * time.Second,
	})

	if err := waitExec(t, mock, 5*time.Second, execAsync(context.Background(), d)); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if got := d.State().Name(); got != device.StateBootSelect {
		t.Errorf("state = %q, want %q", got, device.StateBootSelect)
	}
	if got := d.ErrorCode(); got != "" {
		t.Errorf("ErrorCode() = %q, want cleared", got)
	}
	if len(rec.faults) != 1 || rec.faults[0].Code != device.FaultSensorUnavailable || rec.faults[0].NodeID != "n1" {
		t.Errorf("recorded faults = %+v", rec.faults)
	}
	if len(pub.faults) != 1 {
		t.Fatalf("published %d faults, want 1", len(pub.faults))
	}
	if pub.faults[0].cfg == nil || pub.faults[0].cfg.Department != "lab" {
		t.Errorf("fault published with settings %+v, want the node settings", pub.faults[0].cfg)
	}
}

func TestError_UnknownCodeWithoutSettings(t *testing.T) {
	mock := clock.NewMock()
	rec := &fakeRecorder{}
	pub := &fakePublisher{err: errBoom}
	d := newErrorDevice(t, mock, nil, "", Deps{Recorder: rec, Publisher: pub})

	if err := waitExec(t, mock, DefaultErrorRetryDelay, execAsync(context.Background(), d)); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if len(rec.faults) != 1 || rec.faults[0].Code != unknownFault {
		t.Errorf("recorded faults = %+v, want code %q", rec.faults, unknownFault)
	}
	if len(pub.faults) != 1 || pub.faults[0].cfg != nil || pub.faults[0].code != unknownFault {
		t.Errorf("published faults = %+v", pub.faults)
	}
	if got := d.State().Name(); got != device.StateBootSelect {
		t.Errorf("state = %q, want %q", got, device.StateBootSelect)
	}
}

func TestError_Cancelled(t *testing.T) {
	mock := clock.NewMock()
	d := newErrorDevice(t, mock, nil, device.FaultMeasureFailed, Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.State().Exec(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Exec() error = %v, want context.Canceled", err)
	}
	if got := d.ErrorCode(); got != device.FaultMeasureFailed {
		t.Errorf("ErrorCode() = %q, want kept", got)
	}
	if got := d.State().Name(); got != device.StateError {
		t.Errorf("state = %q, want %q", got, device.StateError)
	}
}

func TestError_EnterShowsRed(t *testing.T) {
	var colors []device.Color
	d := newTestDevice(t, clock.NewMock(), device.Options{
		Initial: device.StateError,
		Indicator: device.IndicatorFunc(func(c device.Color) error {
			colors = append(colors, c)
			return nil
		}),
	}, Deps{})

	if err := d.State().Enter(context.Background()); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if len(colors) != 1 || colors[0] != device.ColorRed {
		t.Errorf("colors = %v, want [red]", colors)
	}
}
