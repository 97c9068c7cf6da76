package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the sensor node.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// Config describes the host the node runs on. The user-editable settings
// (location, units, broker credentials) live in the settings file instead.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Settings  SettingsConfig  `yaml:"settings"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Portal    PortalConfig    `yaml:"portal"`
	Operation OperationConfig `yaml:"operation"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig identifies the node and paces the controller loop.
type NodeConfig struct {
	// ID overrides the generated node identity. Empty means "use the stored one".
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// CycleDelayMS is the pause between two state machine iterations.
	CycleDelayMS int `yaml:"cycle_delay_ms"`
}

// HardwareConfig maps the node's peripherals to GPIO pins.
type HardwareConfig struct {
	// Enabled selects the periph.io platform. When false no GPIO is touched
	// and the indicator is logged instead.
	Enabled bool `yaml:"enabled"`

	SensorPin    string `yaml:"sensor_pin"`
	SensorDriver string `yaml:"sensor_driver"`

	ButtonPin       string `yaml:"button_pin"`
	ButtonActiveLow bool   `yaml:"button_active_low"`

	LED LEDConfig `yaml:"led"`
}

// LEDConfig contains the RGB status LED pins. Any empty pin disables the LED.
type LEDConfig struct {
	Red   string `yaml:"red"`
	Green string `yaml:"green"`
	Blue  string `yaml:"blue"`
}

// SettingsConfig locates the persisted user settings.
type SettingsConfig struct {
	Path string `yaml:"path"`

	// WorkDir is searched for conventional settings files on factory reset.
	WorkDir string `yaml:"work_dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT defaults. The broker address and credentials
// from the user settings take precedence over Broker and Auth.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`

	// CACert is a PEM file trusted in addition to the system roots.
	CACert string `yaml:"ca_cert"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// PortalConfig contains the configuration portal HTTP settings.
type PortalConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Timeout closes the portal and returns to boot selection (seconds, 0 = never).
	Timeout int `yaml:"timeout"`

	// StaticDir is served under /static/.
	StaticDir string `yaml:"static_dir"`

	// AdminPassword protects the portal until a password is stored in the settings.
	AdminPassword string `yaml:"admin_password"`

	MDNS MDNSConfig `yaml:"mdns"`
}

// MDNSConfig controls the portal's mDNS advertisement.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Service  string `yaml:"service"`
	Domain   string `yaml:"domain"`
}

// OperationConfig tunes the operating and error states.
type OperationConfig struct {
	// ErrorRetryDelay is how long the Error state waits before rebooting
	// into boot selection (seconds).
	ErrorRetryDelay int `yaml:"error_retry_delay"`

	// RetentionDays prunes stored measurements and faults older than this
	// (0 = keep forever).
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: THSENSOR_SECTION_KEY
// For example: THSENSOR_DATABASE_PATH, THSENSOR_SENSOR_PIN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults for a Raspberry Pi node.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Name:         "thsensor",
			CycleDelayMS: 100,
		},
		Hardware: HardwareConfig{
			Enabled:         true,
			SensorPin:       "GPIO4",
			SensorDriver:    "dht22",
			ButtonPin:       "GPIO20",
			ButtonActiveLow: true,
		},
		Settings: SettingsConfig{
			Path:    "./data/settings.json",
			WorkDir: "./data",
		},
		Database: DatabaseConfig{
			Path:        "./data/thsensor.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Port:     1883,
				ClientID: "thsensor",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "thsensor",
			Bucket:        "environment",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Portal: PortalConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 600,
			MDNS: MDNSConfig{
				Enabled: true,
				Service: "_http._tcp",
				Domain:  "local.",
			},
		},
		Operation: OperationConfig{
			ErrorRetryDelay: 10,
			RetentionDays:   30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: THSENSOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Node
	if v := os.Getenv("THSENSOR_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}

	// Hardware
	if v := os.Getenv("THSENSOR_SENSOR_PIN"); v != "" {
		cfg.Hardware.SensorPin = v
	}
	if v := os.Getenv("THSENSOR_SENSOR_DRIVER"); v != "" {
		cfg.Hardware.SensorDriver = v
	}

	// Storage
	if v := os.Getenv("THSENSOR_SETTINGS_PATH"); v != "" {
		cfg.Settings.Path = v
	}
	if v := os.Getenv("THSENSOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("THSENSOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("THSENSOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("THSENSOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("THSENSOR_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("THSENSOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Portal
	if v := os.Getenv("THSENSOR_PORTAL_HOST"); v != "" {
		cfg.Portal.Host = v
	}
	if v := os.Getenv("THSENSOR_PORTAL_PASSWORD"); v != "" {
		cfg.Portal.AdminPassword = v
	}

	// Logging
	if v := os.Getenv("THSENSOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.CycleDelayMS < 0 {
		errs = append(errs, "node.cycle_delay_ms must not be negative")
	}

	switch strings.ToLower(c.Hardware.SensorDriver) {
	case "dht11", "dht22", "am2302":
	default:
		errs = append(errs, "hardware.sensor_driver must be dht11 or dht22")
	}
	if c.Hardware.SensorPin == "" {
		errs = append(errs, "hardware.sensor_pin is required")
	}

	if c.Settings.Path == "" {
		errs = append(errs, "settings.path is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Portal.Port < 1 || c.Portal.Port > 65535 {
		errs = append(errs, "portal.port must be between 1 and 65535")
	}
	if c.Portal.Timeout < 0 {
		errs = append(errs, "portal.timeout must not be negative")
	}

	if c.Operation.ErrorRetryDelay < 0 {
		errs = append(errs, "operation.error_retry_delay must not be negative")
	}
	if c.Operation.RetentionDays < 0 {
		errs = append(errs, "operation.retention_days must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CycleDelay returns the state machine pause as a Duration.
func (c *Config) CycleDelay() time.Duration {
	return time.Duration(c.Node.CycleDelayMS) * time.Millisecond
}

// PortalTimeout returns the portal lifetime as a Duration (0 = unlimited).
func (c *Config) PortalTimeout() time.Duration {
	return time.Duration(c.Portal.Timeout) * time.Second
}

// ErrorRetryDelay returns the Error state's wait as a Duration.
func (c *Config) ErrorRetryDelay() time.Duration {
	return time.Duration(c.Operation.ErrorRetryDelay) * time.Second
}

// Retention returns how long stored rows are kept (0 = forever).
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Operation.RetentionDays) * 24 * time.Hour
}
