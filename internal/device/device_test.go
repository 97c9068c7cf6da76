package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"
)

// stepClock is a mock clock whose Sleep advances time instead of blocking.
type stepClock struct {
	*clock.Mock
}

func (c stepClock) Sleep(d time.Duration) {
	c.Add(d)
}

func newStepClock() stepClock {
	return stepClock{Mock: clock.NewMock()}
}

// stubState records how often the loop called into it.
type stubState struct {
	id       StateID
	enters   int
	execs    int
	exits    int
	execFn   func() error
	enterErr error
	exitErr  error
}

func (s *stubState) Name() StateID { return s.id }

func (s *stubState) Enter(context.Context) error {
	s.enters++
	return s.enterErr
}

func (s *stubState) Exec(context.Context) error {
	s.execs++
	if s.execFn != nil {
		return s.execFn()
	}
	return nil
}

func (s *stubState) Exit(context.Context) error {
	s.exits++
	return s.exitErr
}

func fixed(s State) Factory {
	return func(*Device) State { return s }
}

// colorLog records every colour shown on the indicator.
type colorLog struct {
	colors []Color
}

func (l *colorLog) SetColor(c Color) error {
	l.colors = append(l.colors, c)
	return nil
}

func (l *colorLog) has(c Color) bool {
	for _, got := range l.colors {
		if got == c {
			return true
		}
	}
	return false
}

// newTestDevice builds a device on a stepping clock and an in-memory
// filesystem. Without explicit states the collaborator states are
// registered as no-op stubs.
func newTestDevice(t *testing.T, opts Options) *Device {
	t.Helper()

	if opts.Clock == nil {
		opts.Clock = newStepClock()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewMemMapFs()
	}
	if opts.States == nil {
		opts.States = map[StateID]Factory{
			StateConfiguration: fixed(&stubState{id: StateConfiguration}),
			StateOperation:     fixed(&stubState{id: StateOperation}),
			StateError:         fixed(&stubState{id: StateError}),
		}
	}

	d, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestNew_Defaults(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.State().Name() != StateBootSelect {
		t.Errorf("initial state = %q, want %q", d.State().Name(), StateBootSelect)
	}
	if d.cycleDelay != DefaultCycleDelay {
		t.Errorf("cycleDelay = %v, want %v", d.cycleDelay, DefaultCycleDelay)
	}
	if d.sensorPin != DefaultSensorPin {
		t.Errorf("sensorPin = %q, want %q", d.sensorPin, DefaultSensorPin)
	}
	if d.sensorDriver != DefaultSensorDriver {
		t.Errorf("sensorDriver = %q, want %q", d.sensorDriver, DefaultSensorDriver)
	}
	if d.Settings() != nil {
		t.Errorf("Settings() = %v, want nil", d.Settings())
	}
	for _, id := range []StateID{StateBootSelect, StateDiagnostics, StateFactoryReset} {
		if !d.HasState(id) {
			t.Errorf("HasState(%q) = false, want true", id)
		}
	}
	for _, id := range []StateID{StateConfiguration, StateOperation, StateError} {
		if d.HasState(id) {
			t.Errorf("HasState(%q) = true, want false", id)
		}
	}
}

func TestNew_UnknownInitialState(t *testing.T) {
	_, err := New(Options{Initial: StateOperation})
	if !errors.Is(err, ErrStateUnavailable) {
		t.Errorf("New() error = %v, want ErrStateUnavailable", err)
	}
}

func TestSettingsMap(t *testing.T) {
	tests := []struct {
		name     string
		settings any
		wantOK   bool
	}{
		{"nil", nil, false},
		{"mapping", map[string]any{"room": "lab"}, true},
		{"empty mapping", map[string]any{}, true},
		{"nil mapping", map[string]any(nil), false},
		{"string", "room=lab", false},
		{"slice", []any{"room"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, Options{Settings: tt.settings})
			if _, ok := d.SettingsMap(); ok != tt.wantOK {
				t.Errorf("SettingsMap() ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestIndicate_ToleratesMissingAndFailingIndicator(t *testing.T) {
	d := newTestDevice(t, Options{})
	d.Indicate(ColorRed)

	d = newTestDevice(t, Options{
		Indicator: IndicatorFunc(func(Color) error { return errors.New("led gone") }),
	})
	d.Indicate(ColorRed)
}

func TestChangeState_Nil(t *testing.T) {
	d := newTestDevice(t, Options{})
	before := d.State()

	if err := d.ChangeState(nil); !errors.Is(err, ErrNilState) {
		t.Errorf("ChangeState(nil) error = %v, want ErrNilState", err)
	}
	if d.State() != before {
		t.Error("ChangeState(nil) replaced the live state")
	}
}

func TestChangeState_TwiceWithSameState(t *testing.T) {
	first := &stubState{id: StateOperation}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States:  map[StateID]Factory{StateOperation: fixed(first)},
	})

	next := &stubState{id: StateError}
	if err := d.ChangeState(next); err != nil {
		t.Fatalf("ChangeState() error = %v", err)
	}
	if err := d.ChangeState(next); err != nil {
		t.Fatalf("ChangeState() error = %v", err)
	}

	if d.State() != next {
		t.Errorf("live state = %v, want %v", d.State(), next)
	}
	if first.exits != 1 {
		t.Errorf("first.exits = %d, want 1", first.exits)
	}
	if next.exits != 1 {
		t.Errorf("next.exits = %d, want 1", next.exits)
	}
	if next.enters != 0 {
		t.Errorf("next.enters = %d, want 0 (enter is the loop's job)", next.enters)
	}
}

func TestChangeState_ExitErrorSuppressed(t *testing.T) {
	first := &stubState{id: StateOperation, exitErr: errors.New("exit boom")}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States:  map[StateID]Factory{StateOperation: fixed(first)},
	})

	next := &stubState{id: StateError}
	if err := d.ChangeState(next); err != nil {
		t.Errorf("ChangeState() error = %v, want nil", err)
	}
	if d.State() != next {
		t.Error("new state not installed after exit failure")
	}
}

func TestRun_RestartStopsWithoutErrorTransition(t *testing.T) {
	errState := &stubState{id: StateError}
	op := &stubState{id: StateOperation, execFn: func() error { return ErrRestartRequested }}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States: map[StateID]Factory{
			StateOperation: fixed(op),
			StateError:     fixed(errState),
		},
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if errState.enters != 0 || errState.execs != 0 {
		t.Errorf("error state was used: enters=%d execs=%d", errState.enters, errState.execs)
	}
	if d.State() != op {
		t.Errorf("live state = %q, want %q", d.State().Name(), StateOperation)
	}
}

func TestRun_WrappedRestartStops(t *testing.T) {
	op := &stubState{id: StateOperation, execFn: func() error {
		return errors.Join(errors.New("cleanup"), ErrRestartRequested)
	}}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States:  map[StateID]Factory{StateOperation: fixed(op)},
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
}

func TestRun_FaultRoutesToError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"untagged", errors.New("boom"), ""},
		{"tagged", NewFault("dht_measure_failed", errors.New("timeout")), "dht_measure_failed"},
		{"wrapped tag", errors.Join(errors.New("ctx"), NewFault("storage_failed", nil)), "storage_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				codeSeen string
				d        *Device
			)
			errState := &stubState{id: StateError}
			errState.execFn = func() error {
				codeSeen = d.ErrorCode()
				return ErrRestartRequested
			}
			op := &stubState{id: StateOperation, execFn: func() error { return tt.err }}

			d = newTestDevice(t, Options{
				Initial: StateOperation,
				States: map[StateID]Factory{
					StateOperation: fixed(op),
					StateError:     fixed(errState),
				},
			})
			d.SetErrorCode("stale")

			if err := d.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if errState.execs != 1 {
				t.Fatalf("error state execs = %d, want 1", errState.execs)
			}
			if codeSeen != tt.wantCode {
				t.Errorf("error code = %q, want %q", codeSeen, tt.wantCode)
			}
			if op.exits != 1 {
				t.Errorf("failing state exits = %d, want 1 (via transition only)", op.exits)
			}
		})
	}
}

func TestRun_ErrorStateUnreachable(t *testing.T) {
	cause := errors.New("boom")
	op := &stubState{id: StateOperation, execFn: func() error { return cause }}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States:  map[StateID]Factory{StateOperation: fixed(op)},
	})

	err := d.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Run() error = %v, want wrapping %v", err, cause)
	}
	if !errors.Is(err, ErrStateUnavailable) {
		t.Errorf("Run() error = %v, want wrapping ErrStateUnavailable", err)
	}
}

func TestRun_PanicIsUntaggedFault(t *testing.T) {
	errState := &stubState{id: StateError, execFn: func() error { return ErrRestartRequested }}
	op := &stubState{id: StateOperation, execFn: func() error { panic("sensor bus wedged") }}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States: map[StateID]Factory{
			StateOperation: fixed(op),
			StateError:     fixed(errState),
		},
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if errState.execs != 1 {
		t.Errorf("error state execs = %d, want 1", errState.execs)
	}
	if d.ErrorCode() != "" {
		t.Errorf("ErrorCode() = %q, want empty", d.ErrorCode())
	}
}

func TestRun_EnterAndExitFailuresSuppressed(t *testing.T) {
	runs := 0
	op := &stubState{
		id:       StateOperation,
		enterErr: errors.New("enter boom"),
		exitErr:  errors.New("exit boom"),
	}
	op.execFn = func() error {
		runs++
		if runs == 3 {
			return ErrRestartRequested
		}
		return nil
	}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States:  map[StateID]Factory{StateOperation: fixed(op)},
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if op.enters != 3 {
		t.Errorf("enters = %d, want 3", op.enters)
	}
	// Exit is skipped on the restart cycle.
	if op.exits != 2 {
		t.Errorf("exits = %d, want 2", op.exits)
	}
}

func TestRun_SkipsExitOnNewStateAfterTransition(t *testing.T) {
	var d *Device
	errState := &stubState{id: StateError, execFn: func() error { return ErrRestartRequested }}
	op := &stubState{id: StateOperation}
	op.execFn = func() error { return d.Transition(StateError) }

	d = newTestDevice(t, Options{
		Initial: StateOperation,
		States: map[StateID]Factory{
			StateOperation: fixed(op),
			StateError:     fixed(errState),
		},
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if op.exits != 1 {
		t.Errorf("old state exits = %d, want 1", op.exits)
	}
	if errState.exits != 0 {
		t.Errorf("new state exits = %d, want 0", errState.exits)
	}
	if errState.enters != 1 || errState.execs != 1 {
		t.Errorf("new state enters=%d execs=%d, want 1 and 1", errState.enters, errState.execs)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	op := &stubState{id: StateOperation}
	op.execFn = func() error {
		runs++
		if runs == 2 {
			cancel()
		}
		return nil
	}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States:  map[StateID]Factory{StateOperation: fixed(op)},
	})

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if runs != 2 {
		t.Errorf("execs = %d, want 2", runs)
	}
}

func TestRun_CancelledExecIsNotAFault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errState := &stubState{id: StateError}
	op := &stubState{id: StateOperation, execFn: func() error {
		cancel()
		return context.Canceled
	}}
	d := newTestDevice(t, Options{
		Initial: StateOperation,
		States: map[StateID]Factory{
			StateOperation: fixed(op),
			StateError:     fixed(errState),
		},
	})

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if errState.execs != 0 {
		t.Errorf("error state execs = %d, want 0", errState.execs)
	}
}

func TestRun_CycleDelayUsesClock(t *testing.T) {
	clk := newStepClock()
	start := clk.Now()
	runs := 0
	op := &stubState{id: StateOperation}
	op.execFn = func() error {
		runs++
		if runs == 4 {
			return ErrRestartRequested
		}
		return nil
	}
	d := newTestDevice(t, Options{
		Clock:      clk,
		CycleDelay: 250 * time.Millisecond,
		Initial:    StateOperation,
		States:     map[StateID]Factory{StateOperation: fixed(op)},
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := clk.Now().Sub(start); got != 750*time.Millisecond {
		t.Errorf("elapsed = %v, want %v", got, 750*time.Millisecond)
	}
}
