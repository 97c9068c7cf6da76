package device

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"
	"periph.io/x/conn/v3/gpio"

	"github.com/nerrad567/thsensor/internal/hw/dht"
)

// Defaults for hardware acquisition and loop pacing.
const (
	// DefaultSensorPin is the data pin used when none is configured.
	DefaultSensorPin = "GPIO4"

	// DefaultSensorDriver is the driver used when none is configured.
	DefaultSensorDriver = "dht22"

	// DefaultCycleDelay is the pause between two run loop iterations.
	DefaultCycleDelay = 100 * time.Millisecond
)

// Options configures a Device. Only the fields a deployment needs have to
// be set; everything else falls back to a default or is treated as absent.
type Options struct {
	// Logger receives state machine events. Defaults to a no-op logger.
	Logger Logger

	// Clock drives every sleep and hold-time measurement. Defaults to the wall clock.
	Clock clock.Clock

	// Indicator shows the device status. Optional.
	Indicator Indicator

	// Button is sampled by BootSelect. Optional.
	Button Button

	// Settings is the decoded persisted settings value. nil means unconfigured.
	Settings any

	// Sensor is a pre-built sensor handle. Optional.
	Sensor Sensor

	// NewSensor builds the sensor on first use. Takes precedence over the
	// platform fallback.
	NewSensor func() (Sensor, error)

	// Platform is used to build the sensor from a pin and driver when
	// neither Sensor nor NewSensor is set.
	Platform Platform

	// SensorPin is the platform pin name. Defaults to DefaultSensorPin.
	SensorPin string

	// SensorDriver selects an entry of Drivers. Defaults to DefaultSensorDriver.
	SensorDriver string

	// Drivers maps driver names to constructors. Defaults to DefaultDrivers().
	Drivers map[string]Driver

	// RemoveSettings deletes persisted settings during a factory reset.
	RemoveSettings func() error

	// SettingsFiles are deleted during a factory reset when RemoveSettings is nil.
	SettingsFiles []string

	// WorkDir is where conventional settings files are looked up during a
	// factory reset. Defaults to the process working directory.
	WorkDir string

	// Fs is the filesystem used for factory reset deletions. Defaults to the OS filesystem.
	Fs afero.Fs

	// CycleDelay is the pause between loop iterations. Defaults to DefaultCycleDelay.
	CycleDelay time.Duration

	// States registers additional state factories or overrides built-in ones.
	States map[StateID]Factory

	// Initial is the first state. Defaults to StateBootSelect.
	Initial StateID
}

// Device is the controller context: it owns the live state and the
// device-wide resources every state works with.
//
// Thread Safety:
//   - A Device is driven by a single goroutine (the one calling Run).
//     Methods must not be called concurrently.
type Device struct {
	state     State
	factories map[StateID]Factory

	settings  any
	sensor    Sensor
	indicator Indicator
	button    Button
	errorCode string

	newSensor    func() (Sensor, error)
	platform     Platform
	sensorPin    string
	sensorDriver string
	drivers      map[string]Driver

	removeSettings func() error
	settingsFiles  []string
	workDir        string
	fs             afero.Fs

	clock      clock.Clock
	cycleDelay time.Duration
	logger     Logger
}

// DefaultDrivers returns the built-in sensor drivers keyed by name.
func DefaultDrivers() map[string]Driver {
	return map[string]Driver{
		"dht11": func(pin gpio.PinIO) (Sensor, error) { return dht.New(pin, dht.DHT11) },
		"dht22": func(pin gpio.PinIO) (Sensor, error) { return dht.New(pin, dht.DHT22) },
	}
}

// New creates a Device and installs its initial state.
//
// Parameters:
//   - opts: Device options (zero value is usable)
//
// Returns:
//   - *Device: Device ready to Run
//   - error: If the initial state has no registered factory
func New(opts Options) (*Device, error) {
	d := &Device{
		settings:       opts.Settings,
		sensor:         opts.Sensor,
		indicator:      opts.Indicator,
		button:         opts.Button,
		newSensor:      opts.NewSensor,
		platform:       opts.Platform,
		sensorPin:      opts.SensorPin,
		sensorDriver:   opts.SensorDriver,
		drivers:        opts.Drivers,
		removeSettings: opts.RemoveSettings,
		settingsFiles:  opts.SettingsFiles,
		workDir:        opts.WorkDir,
		fs:             opts.Fs,
		clock:          opts.Clock,
		cycleDelay:     opts.CycleDelay,
		logger:         opts.Logger,
	}

	if d.logger == nil {
		d.logger = noopLogger{}
	}
	if d.clock == nil {
		d.clock = clock.New()
	}
	if d.fs == nil {
		d.fs = afero.NewOsFs()
	}
	if d.cycleDelay <= 0 {
		d.cycleDelay = DefaultCycleDelay
	}
	if d.sensorPin == "" {
		d.sensorPin = DefaultSensorPin
	}
	if d.sensorDriver == "" {
		d.sensorDriver = DefaultSensorDriver
	}
	if d.drivers == nil {
		d.drivers = DefaultDrivers()
	}

	d.factories = map[StateID]Factory{
		StateBootSelect:   NewBootSelect,
		StateDiagnostics:  NewDiagnostics,
		StateFactoryReset: NewFactoryReset,
	}
	for id, f := range opts.States {
		d.factories[id] = f
	}

	initial := opts.Initial
	if initial == "" {
		initial = StateBootSelect
	}
	if err := d.Transition(initial); err != nil {
		return nil, fmt.Errorf("installing initial state: %w", err)
	}

	return d, nil
}

// State returns the live state.
func (d *Device) State() State {
	return d.state
}

// Settings returns the persisted settings value (nil when unconfigured).
func (d *Device) Settings() any {
	return d.settings
}

// SettingsMap returns the settings as a mapping, reporting false when the
// device is unconfigured or the settings are not a well-formed mapping.
func (d *Device) SettingsMap() (map[string]any, bool) {
	m, ok := d.settings.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// SetSettings replaces the in-memory settings.
func (d *Device) SetSettings(v any) {
	d.settings = v
}

// ErrorCode returns the tag of the most recent fault ("" when absent).
func (d *Device) ErrorCode() string {
	return d.errorCode
}

// SetErrorCode records a fault tag for the Error state.
func (d *Device) SetErrorCode(code string) {
	d.errorCode = code
}

// Sensor returns the current sensor handle, which may be nil.
func (d *Device) Sensor() Sensor {
	return d.sensor
}

// Clock returns the device clock.
func (d *Device) Clock() clock.Clock {
	return d.clock
}

// Logger returns the device logger.
func (d *Device) Logger() Logger {
	return d.logger
}

// Indicate sets the indicator colour. A missing indicator or a driver
// failure is tolerated; failures are only logged at debug level.
func (d *Device) Indicate(c Color) {
	if d.indicator == nil {
		return
	}
	if err := d.indicator.SetColor(c); err != nil {
		d.logger.Debug("indicator update failed",
			"color", c.String(),
			"error", err,
		)
	}
}
