package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Temperature unit systems.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
	UnitsStandard = "standard"
)

// Defaults applied to keys missing from a stored settings map.
const (
	DefaultUnits               = UnitsStandard
	DefaultNTPHost             = "pool.ntp.org"
	DefaultMeasurementInterval = 60
	DefaultMQTTPort            = 1883
)

// Settings is the typed form of the persisted settings map.
type Settings struct {
	Department          string `json:"department" mapstructure:"department"`
	Room                string `json:"room" mapstructure:"room"`
	Units               string `json:"units" mapstructure:"units"`
	NTPHost             string `json:"ntp_host" mapstructure:"ntp_host"`
	AdminPassword       string `json:"admin_password" mapstructure:"admin_password"`
	MeasurementInterval int    `json:"measurement_interval" mapstructure:"measurement_interval"` // seconds
	WiFi                WiFi   `json:"wifi" mapstructure:"wifi"`
	MQTT                MQTT   `json:"mqtt" mapstructure:"mqtt"`
}

// WiFi holds the station credentials.
type WiFi struct {
	SSID   string `json:"ssid" mapstructure:"ssid"`
	Passwd string `json:"passwd" mapstructure:"passwd"`
}

// MQTT holds the telemetry broker connection.
type MQTT struct {
	Server   string `json:"server" mapstructure:"server"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	SSL      bool   `json:"ssl" mapstructure:"ssl"`
	Cert     string `json:"cert" mapstructure:"cert"`
}

// Default returns settings with every default applied.
func Default() Settings {
	return Settings{
		Units:               DefaultUnits,
		NTPHost:             DefaultNTPHost,
		MeasurementInterval: DefaultMeasurementInterval,
		MQTT: MQTT{
			Port: DefaultMQTTPort,
		},
	}
}

// Decode converts a raw settings value (as stored on the device) into
// Settings. Missing keys keep their defaults, null values are ignored and
// numeric strings are accepted where numbers are expected.
//
// Parameters:
//   - raw: A map[string]any, typically from Store.Load or the portal
//
// Returns:
//   - Settings: Decoded and validated settings
//   - error: ErrInvalidSettings or a validation error
func Decode(raw any) (Settings, error) {
	m, ok := raw.(map[string]any)
	if !ok || m == nil {
		return Settings{}, fmt.Errorf("%w: expected a mapping, got %T", ErrInvalidSettings, raw)
	}

	s := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := dec.Decode(dropNulls(m)); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	s.Units = strings.ToLower(strings.TrimSpace(s.Units))
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// dropNulls removes nil values so they do not clear defaults.
func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = dropNulls(val)
		default:
			out[k] = v
		}
	}
	return out
}

// Validate checks the fields the node relies on.
func (s Settings) Validate() error {
	switch s.Units {
	case UnitsMetric, UnitsImperial, UnitsStandard:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidUnits, s.Units)
	}
	if s.MeasurementInterval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, s.MeasurementInterval)
	}
	if s.MQTT.Server != "" && (s.MQTT.Port < 1 || s.MQTT.Port > 65535) {
		return fmt.Errorf("%w: %d", ErrInvalidPort, s.MQTT.Port)
	}
	return nil
}

// Interval returns the measurement interval as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.MeasurementInterval) * time.Second
}

// ToMap converts Settings back to the stored map form.
func (s Settings) ToMap() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return m, nil
}

// ConvertTemperature converts a Celsius reading to the given unit system.
// Unknown units leave the value unchanged.
func ConvertTemperature(celsius float64, units string) float64 {
	switch units {
	case UnitsImperial:
		return celsius*9/5 + 32
	case UnitsStandard:
		return celsius + 273.15
	default:
		return celsius
	}
}

// UnitSymbol returns the temperature symbol for the unit system.
func UnitSymbol(units string) string {
	switch units {
	case UnitsImperial:
		return "°F"
	case UnitsStandard:
		return "K"
	default:
		return "°C"
	}
}
