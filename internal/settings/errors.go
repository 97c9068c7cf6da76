package settings

import "errors"

// Domain errors for the settings package.
var (
	// ErrInvalidSettings is returned when a settings value cannot be decoded.
	ErrInvalidSettings = errors.New("settings: invalid settings")

	// ErrInvalidUnits is returned for an unknown temperature unit system.
	ErrInvalidUnits = errors.New("settings: invalid units")

	// ErrInvalidInterval is returned for a non-positive measurement interval.
	ErrInvalidInterval = errors.New("settings: invalid measurement interval")

	// ErrInvalidPort is returned for an MQTT port outside 1-65535.
	ErrInvalidPort = errors.New("settings: invalid mqtt port")
)
