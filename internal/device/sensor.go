package device

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Accepted reading ranges.
const (
	MinTemperature = 0.0
	MaxTemperature = 50.0
	MinHumidity    = 20.0
	MaxHumidity    = 90.0
)

// Reading is one validated sensor sample.
type Reading struct {
	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity is relative humidity in percent.
	Humidity float64
}

// AcquireSensor returns the device sensor, creating it on first use.
//
// Acquisition order: the cached handle, then Options.NewSensor, then the
// hardware platform with the configured pin and driver. A newly created
// handle is cached for later states.
//
// Returns:
//   - Sensor: The sensor handle
//   - error: A *Fault tagged dht_init_failed, dht_unavailable or
//     dht_module_no_class depending on the failing step
func (d *Device) AcquireSensor() (Sensor, error) {
	if d.sensor != nil {
		return d.sensor, nil
	}

	var (
		s   Sensor
		err error
	)
	if d.newSensor != nil {
		s, err = d.newSensor()
		if err != nil {
			return nil, NewFault(FaultSensorInitFailed, err)
		}
	} else {
		s, err = d.sensorFromPlatform()
		if err != nil {
			return nil, err
		}
	}
	if s == nil {
		return nil, NewFault(FaultSensorInitFailed, errors.New("sensor constructor returned nil"))
	}

	d.sensor = s
	d.logger.Info("sensor acquired",
		"pin", d.sensorPin,
		"driver", d.sensorDriver,
	)
	return s, nil
}

func (d *Device) sensorFromPlatform() (Sensor, error) {
	if d.platform == nil {
		return nil, NewFault(FaultSensorUnavailable, ErrNoPlatform)
	}
	if err := d.platform.Init(); err != nil {
		return nil, NewFault(FaultSensorUnavailable, fmt.Errorf("platform init: %w", err))
	}

	pin := d.platform.PinByName(d.sensorPin)
	if pin == nil {
		return nil, NewFault(FaultSensorUnavailable, fmt.Errorf("%w: %s", ErrPinNotFound, d.sensorPin))
	}

	driver, ok := d.drivers[strings.ToLower(d.sensorDriver)]
	if !ok || driver == nil {
		return nil, NewFault(FaultSensorNoDriver, fmt.Errorf("%w: %s", ErrUnknownDriver, d.sensorDriver))
	}

	s, err := driver(pin)
	if err != nil {
		return nil, NewFault(FaultSensorInitFailed, err)
	}
	return s, nil
}

// ReadSensor triggers a measurement when the sensor supports it and reads
// both values. A value is reported absent (ok false) when the driver has
// no accessor for it or returned a non-finite number.
//
// Returns:
//   - temp, humidity: The raw values
//   - tempOK, humOK: Whether each value is present
//   - error: A *Fault tagged dht_measure_failed if any driver call failed
func ReadSensor(s Sensor) (temp, humidity float64, tempOK, humOK bool, err error) {
	if sampler, ok := s.(Sampler); ok {
		if err := sampler.Measure(); err != nil {
			return 0, 0, false, false, NewFault(FaultMeasureFailed, err)
		}
	}

	temp, tempOK, err = readTemperature(s)
	if err != nil {
		return 0, 0, false, false, NewFault(FaultMeasureFailed, err)
	}
	humidity, humOK, err = readHumidity(s)
	if err != nil {
		return 0, 0, false, false, NewFault(FaultMeasureFailed, err)
	}
	return temp, humidity, tempOK, humOK, nil
}

func readTemperature(s Sensor) (float64, bool, error) {
	var (
		v   float64
		err error
	)
	switch r := s.(type) {
	case TemperatureReader:
		v, err = r.Temperature()
	case TempReader:
		v, err = r.Temp()
	default:
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, finite(v), nil
}

func readHumidity(s Sensor) (float64, bool, error) {
	var (
		v   float64
		err error
	)
	switch r := s.(type) {
	case HumidityReader:
		v, err = r.Humidity()
	case HumReader:
		v, err = r.Hum()
	default:
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, finite(v), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateReading checks presence and range of a sample.
//
// Returns:
//   - error: A *Fault tagged dht_invalid_readings, temp_out_of_range:<v>
//     or hum_out_of_range:<v>, or nil when the sample is acceptable
func ValidateReading(temp, humidity float64, tempOK, humOK bool) error {
	if !tempOK || !humOK {
		return NewFault(FaultInvalidReadings, ErrInvalidReading)
	}
	if temp < MinTemperature || temp > MaxTemperature {
		return NewFault(FaultTemperatureRange+":"+formatTagValue(temp),
			fmt.Errorf("%w: temperature %s", ErrOutOfRange, formatTagValue(temp)))
	}
	if humidity < MinHumidity || humidity > MaxHumidity {
		return NewFault(FaultHumidityRange+":"+formatTagValue(humidity),
			fmt.Errorf("%w: humidity %s", ErrOutOfRange, formatTagValue(humidity)))
	}
	return nil
}

// Sample acquires the sensor, reads it and validates the result.
//
// Returns:
//   - Reading: The validated sample
//   - error: A *Fault carrying the tag of the failing step
func (d *Device) Sample() (Reading, error) {
	s, err := d.AcquireSensor()
	if err != nil {
		return Reading{}, err
	}

	temp, humidity, tempOK, humOK, err := ReadSensor(s)
	if err != nil {
		return Reading{}, err
	}
	if err := ValidateReading(temp, humidity, tempOK, humOK); err != nil {
		return Reading{}, err
	}
	return Reading{Temperature: temp, Humidity: humidity}, nil
}

// formatTagValue renders a reading for a fault tag, always with a
// fractional part ("-5.0", "95.0", "21.25"). Magnitudes below 1e-4 or from
// 1e16 up switch to exponent form ("1e-05", "1e+16").
func formatTagValue(v float64) string {
	if abs := math.Abs(v); abs != 0 && !math.IsInf(v, 0) && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}
