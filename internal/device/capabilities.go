package device

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Color is an RGB indicator colour.
type Color struct {
	R, G, B uint8
}

// Indicator colours.
var (
	ColorRed     = Color{255, 0, 0}
	ColorGreen   = Color{0, 255, 0}
	ColorBlue    = Color{0, 0, 255}
	ColorYellow  = Color{255, 255, 0}
	ColorCyan    = Color{0, 255, 255}
	ColorMagenta = Color{255, 0, 255}
	ColorOrange  = Color{255, 165, 0}
	ColorOff     = Color{0, 0, 0}
)

var colorNames = map[Color]string{
	ColorRed:     "red",
	ColorGreen:   "green",
	ColorBlue:    "blue",
	ColorYellow:  "yellow",
	ColorCyan:    "cyan",
	ColorMagenta: "magenta",
	ColorOrange:  "orange",
	ColorOff:     "off",
}

// String returns the colour name, or #rrggbb for unnamed colours.
func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Indicator is a status LED or any other device able to show a colour.
type Indicator interface {
	SetColor(c Color) error
}

// IndicatorFunc adapts a function to the Indicator interface.
type IndicatorFunc func(c Color) error

// SetColor implements Indicator.
func (f IndicatorFunc) SetColor(c Color) error {
	return f(c)
}

// Button is the user push button sampled by BootSelect.
type Button interface {
	Pressed() (bool, error)
}

// ButtonFunc adapts an "is pressed" predicate to the Button interface.
type ButtonFunc func() bool

// Pressed implements Button.
func (f ButtonFunc) Pressed() (bool, error) {
	return f(), nil
}

// ButtonState adapts a boolean that is updated elsewhere (e.g. by an
// interrupt handler) to the Button interface.
type ButtonState struct {
	Down *bool
}

// Pressed implements Button.
func (b ButtonState) Pressed() (bool, error) {
	if b.Down == nil {
		return false, nil
	}
	return *b.Down, nil
}

// Sensor is a handle to an environmental sensor driver.
//
// Readings are discovered through the optional interfaces below, so drivers
// with either naming convention can be used without adapters.
type Sensor any

// Sampler is implemented by drivers that need an explicit measurement
// trigger before values can be read.
type Sampler interface {
	Measure() error
}

// TemperatureReader reads the last measured temperature in degrees Celsius.
type TemperatureReader interface {
	Temperature() (float64, error)
}

// TempReader is the short-named variant of TemperatureReader.
type TempReader interface {
	Temp() (float64, error)
}

// HumidityReader reads the last measured relative humidity in percent.
type HumidityReader interface {
	Humidity() (float64, error)
}

// HumReader is the short-named variant of HumidityReader.
type HumReader interface {
	Hum() (float64, error)
}

// Platform gives access to the board's GPIO pins.
type Platform interface {
	// Init prepares the host drivers. It must be safe to call repeatedly.
	Init() error

	// PinByName returns the named pin, or nil if it does not exist.
	PinByName(name string) gpio.PinIO
}

// Driver constructs a sensor attached to a single data pin.
type Driver func(pin gpio.PinIO) (Sensor, error)

// Logger defines the logging interface used by the device.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
