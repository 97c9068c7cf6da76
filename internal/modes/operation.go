package modes

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/thsensor/internal/device"
	"github.com/nerrad567/thsensor/internal/measurement"
	"github.com/nerrad567/thsensor/internal/settings"
	"github.com/nerrad567/thsensor/internal/telemetry"
)

// Operation samples the sensor once per measurement interval and reports
// each sample.
type Operation struct {
	d    *device.Device
	deps Deps
}

// NewOperation returns the factory of the Operation state.
func NewOperation(deps Deps) device.Factory {
	return func(d *device.Device) device.State {
		return &Operation{d: d, deps: deps}
	}
}

// Name returns StateOperation.
func (s *Operation) Name() device.StateID {
	return device.StateOperation
}

// Enter turns the indicator off.
func (s *Operation) Enter(_ context.Context) error {
	s.d.Indicate(device.ColorOff)
	return nil
}

// Exec takes one sample, records and publishes it, then waits for the
// measurement interval.
//
// Invalid settings fail with settings_invalid and sensor failures with the
// tag of the failing step. Recording and publishing are best-effort.
//
// Returns:
//   - error: nil after the wait, ctx.Err() when cancelled during it
func (s *Operation) Exec(ctx context.Context) error {
	cfg, err := settings.Decode(s.d.Settings())
	if err != nil {
		return s.d.Fail(device.FaultSettingsInvalid, err)
	}

	r, err := s.d.Sample()
	if err != nil {
		return s.d.Fail(device.FaultCode(err), err)
	}

	now := s.d.Clock().Now()
	s.d.Logger().Debug("sample taken",
		"temperature", r.Temperature,
		"humidity", r.Humidity,
	)

	id := s.record(ctx, cfg, r, now)
	if s.publish(cfg, telemetry.Sample{Temperature: r.Temperature, Humidity: r.Humidity, TakenAt: now}) {
		s.markPublished(ctx, id)
		s.replayBacklog(ctx, cfg)
	}
	s.prune(ctx)

	return sleep(ctx, s.d.Clock(), cfg.Interval())
}

// Exit does nothing.
func (s *Operation) Exit(_ context.Context) error {
	return nil
}

// record stores the sample and returns its row id, 0 when not stored.
func (s *Operation) record(ctx context.Context, cfg settings.Settings, r device.Reading, at time.Time) int64 {
	if s.deps.Recorder == nil {
		return 0
	}
	id, err := s.deps.Recorder.Record(ctx, measurement.Measurement{
		NodeID:      s.deps.NodeID,
		TakenAt:     at,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Units:       cfg.Units,
	})
	if err != nil {
		s.d.Logger().Warn("recording measurement failed", "error", err)
		return 0
	}
	return id
}

// publish reports whether the sample reached the broker.
func (s *Operation) publish(cfg settings.Settings, sample telemetry.Sample) bool {
	if s.deps.Publisher == nil {
		return false
	}
	err := s.deps.Publisher.PublishMeasurement(cfg, sample)
	switch {
	case err == nil:
		return true
	case errors.Is(err, telemetry.ErrNoBroker):
		s.d.Logger().Debug("no broker configured, measurement kept locally")
	default:
		s.d.Logger().Warn("publishing measurement failed", "error", err)
	}
	return false
}

func (s *Operation) markPublished(ctx context.Context, id int64) {
	if s.deps.Recorder == nil || id == 0 {
		return
	}
	if err := s.deps.Recorder.MarkPublished(ctx, id); err != nil {
		s.d.Logger().Warn("marking measurement published failed", "id", id, "error", err)
	}
}

// replayBacklog publishes samples stored while the broker was unreachable,
// oldest first, stopping at the first failure.
func (s *Operation) replayBacklog(ctx context.Context, cfg settings.Settings) {
	if s.deps.Recorder == nil {
		return
	}
	backlog, err := s.deps.Recorder.Unpublished(ctx, backlogBatch)
	if err != nil {
		s.d.Logger().Warn("reading measurement backlog failed", "error", err)
		return
	}
	for _, m := range backlog {
		sample := telemetry.Sample{Temperature: m.Temperature, Humidity: m.Humidity, TakenAt: m.TakenAt}
		if !s.publish(cfg, sample) {
			return
		}
		s.markPublished(ctx, m.ID)
	}
	if len(backlog) > 0 {
		s.d.Logger().Info("measurement backlog replayed", "count", len(backlog))
	}
}

func (s *Operation) prune(ctx context.Context) {
	if s.deps.Recorder == nil || s.deps.Retention <= 0 {
		return
	}
	n, err := s.deps.Recorder.Prune(ctx, s.deps.Retention)
	if err != nil {
		s.d.Logger().Warn("pruning measurements failed", "error", err)
		return
	}
	if n > 0 {
		s.d.Logger().Debug("pruned old rows", "count", n)
	}
}
