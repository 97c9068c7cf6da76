package settings

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestDecode_Defaults(t *testing.T) {
	s, err := Decode(map[string]any{"department": "it", "room": "b12"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if s.Department != "it" || s.Room != "b12" {
		t.Errorf("location = %q/%q, want it/b12", s.Department, s.Room)
	}
	if s.Units != UnitsStandard {
		t.Errorf("Units = %q, want %q", s.Units, UnitsStandard)
	}
	if s.NTPHost != DefaultNTPHost {
		t.Errorf("NTPHost = %q, want %q", s.NTPHost, DefaultNTPHost)
	}
	if s.MeasurementInterval != DefaultMeasurementInterval {
		t.Errorf("MeasurementInterval = %d, want %d", s.MeasurementInterval, DefaultMeasurementInterval)
	}
	if s.MQTT.Port != DefaultMQTTPort {
		t.Errorf("MQTT.Port = %d, want %d", s.MQTT.Port, DefaultMQTTPort)
	}
}

func TestDecode_StoredForm(t *testing.T) {
	// Shape produced by json.Unmarshal: numbers are float64, unset fields null.
	raw := map[string]any{
		"department":           "it",
		"room":                 nil,
		"units":                "Metric",
		"measurement_interval": float64(30),
		"wifi":                 map[string]any{"ssid": "lab", "passwd": "secret"},
		"mqtt":                 map[string]any{"server": "broker.local", "port": nil, "ssl": true},
	}

	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if s.Units != UnitsMetric {
		t.Errorf("Units = %q, want %q", s.Units, UnitsMetric)
	}
	if s.Interval() != 30*time.Second {
		t.Errorf("Interval() = %v, want 30s", s.Interval())
	}
	if s.WiFi.SSID != "lab" {
		t.Errorf("WiFi.SSID = %q, want lab", s.WiFi.SSID)
	}
	if s.MQTT.Server != "broker.local" || s.MQTT.Port != DefaultMQTTPort || !s.MQTT.SSL {
		t.Errorf("MQTT = %+v, want broker.local:%d ssl", s.MQTT, DefaultMQTTPort)
	}
}

func TestDecode_FormStrings(t *testing.T) {
	s, err := Decode(map[string]any{
		"measurement_interval": "120",
		"mqtt":                 map[string]any{"server": "10.0.0.2", "port": "8883"},
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if s.MeasurementInterval != 120 {
		t.Errorf("MeasurementInterval = %d, want 120", s.MeasurementInterval)
	}
	if s.MQTT.Port != 8883 {
		t.Errorf("MQTT.Port = %d, want 8883", s.MQTT.Port)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		wantErr error
	}{
		{"nil", nil, ErrInvalidSettings},
		{"not a mapping", "units=metric", ErrInvalidSettings},
		{"bad units", map[string]any{"units": "kelvinish"}, ErrInvalidUnits},
		{"zero interval", map[string]any{"measurement_interval": 0}, ErrInvalidInterval},
		{"bad interval type", map[string]any{"measurement_interval": "soon"}, ErrInvalidSettings},
		{"bad port", map[string]any{"mqtt": map[string]any{"server": "b", "port": 70000}}, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.raw); !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestToMap_DecodesBack(t *testing.T) {
	in := Default()
	in.Department, in.Room, in.Units = "ops", "r7", UnitsImperial

	m, err := in.ToMap()
	if err != nil {
		t.Fatalf("ToMap() error = %v", err)
	}
	out, err := Decode(m)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out != in {
		t.Errorf("Decode(ToMap()) = %+v, want %+v", out, in)
	}
}

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		units string
		in    float64
		want  float64
		sym   string
	}{
		{UnitsMetric, 21.5, 21.5, "°C"},
		{UnitsImperial, 100, 212, "°F"},
		{UnitsImperial, -40, -40, "°F"},
		{UnitsStandard, 0, 273.15, "K"},
	}

	for _, tt := range tests {
		got := ConvertTemperature(tt.in, tt.units)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ConvertTemperature(%v, %s) = %v, want %v", tt.in, tt.units, got, tt.want)
		}
		if sym := UnitSymbol(tt.units); sym != tt.sym {
			t.Errorf("UnitSymbol(%s) = %q, want %q", tt.units, sym, tt.sym)
		}
	}
}

func TestStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/var/lib/thsensor/settings.json")

	m, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on empty store error = %v", err)
	}
	if m != nil {
		t.Errorf("Load() on empty store = %v, want nil", m)
	}

	want := map[string]any{"department": "it", "measurement_interval": float64(15)}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	v, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("Load() = %T, want map[string]any", v)
	}
	if got["department"] != "it" || got["measurement_interval"] != float64(15) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
	if ok, _ := afero.Exists(fs, store.Path()+".tmp"); ok {
		t.Error("temporary file left behind")
	}

	if err := store.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}
	if m, _ := store.Load(); m != nil {
		t.Errorf("Load() after Remove() = %v, want nil", m)
	}
}

func TestStore_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/settings.json", []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(fs, "/settings.json").Load(); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Load() error = %v, want ErrInvalidSettings", err)
	}
}

func TestStore_NonMapping(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"array", `[1,2]`},
		{"string", `"hello"`},
		{"number", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/settings.json", []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}

			v, err := NewStore(fs, "/settings.json").Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if v == nil {
				t.Fatal("Load() = nil, want the decoded value")
			}
			if _, ok := v.(map[string]any); ok {
				t.Errorf("Load() = %v, want a non-mapping value", v)
			}
			if _, err := Decode(v); !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("Decode(%v) error = %v, want ErrInvalidSettings", v, err)
			}
		})
	}
}
