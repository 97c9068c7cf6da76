package device

import (
	"errors"
	"testing"
)

func TestFormatTagValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{-5, "-5.0"},
		{95, "95.0"},
		{0, "0.0"},
		{21.25, "21.25"},
		{50.5, "50.5"},
		{-0.1, "-0.1"},
		{0.0001, "0.0001"},
		{1e-05, "1e-05"},
		{-2.5e-07, "-2.5e-07"},
		{1e16, "1e+16"},
		{1.5e17, "1.5e+17"},
		{1e15, "1000000000000000.0"},
		{1e100, "1e+100"},
	}

	for _, tt := range tests {
		if got := formatTagValue(tt.in); got != tt.want {
			t.Errorf("formatTagValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateReading(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		hum      float64
		tempOK   bool
		humOK    bool
		wantCode string
		wantErr  error
	}{
		{"valid", 25, 50, true, true, "", nil},
		{"lower bounds", 0, 20, true, true, "", nil},
		{"upper bounds", 50, 90, true, true, "", nil},
		{"temperature absent", 0, 50, false, true, FaultInvalidReadings, ErrInvalidReading},
		{"humidity absent", 25, 0, true, false, FaultInvalidReadings, ErrInvalidReading},
		{"too cold", -0.5, 50, true, true, "temp_out_of_range:-0.5", ErrOutOfRange},
		{"too dry", 25, 19.9, true, true, "hum_out_of_range:19.9", ErrOutOfRange},
		{"too humid", 25, 90.1, true, true, "hum_out_of_range:90.1", ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReading(tt.temp, tt.hum, tt.tempOK, tt.humOK)
			if got := FaultCode(err); got != tt.wantCode {
				t.Errorf("FaultCode() = %q, want %q", got, tt.wantCode)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateReading() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateReading() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadSensor_AbsentAccessors(t *testing.T) {
	_, _, tempOK, humOK, err := ReadSensor(struct{}{})
	if err != nil {
		t.Fatalf("ReadSensor() error = %v", err)
	}
	if tempOK || humOK {
		t.Errorf("ReadSensor() ok = %v/%v, want false/false", tempOK, humOK)
	}
}

func TestFaultCode(t *testing.T) {
	if got := FaultCode(nil); got != "" {
		t.Errorf("FaultCode(nil) = %q, want empty", got)
	}
	if got := FaultCode(errors.New("plain")); got != "" {
		t.Errorf("FaultCode(plain) = %q, want empty", got)
	}

	cause := errors.New("checksum mismatch")
	f := NewFault(FaultMeasureFailed, cause)
	if got := FaultCode(f); got != FaultMeasureFailed {
		t.Errorf("FaultCode() = %q, want %q", got, FaultMeasureFailed)
	}
	if !errors.Is(f, cause) {
		t.Error("Fault does not unwrap to its cause")
	}
	if got, want := f.Error(), "fault dht_measure_failed: checksum mismatch"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestColorString(t *testing.T) {
	if got := ColorOrange.String(); got != "orange" {
		t.Errorf("ColorOrange.String() = %q, want orange", got)
	}
	if got := (Color{1, 2, 3}).String(); got != "#010203" {
		t.Errorf("String() = %q, want #010203", got)
	}
}
