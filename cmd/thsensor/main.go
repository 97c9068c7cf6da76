// thsensor - environmental sensor node
//
// This is the main entry point of the node controller. It wires the
// hardware, local storage and telemetry sinks into the device state
// machine and runs it until a restart is requested or the process is
// signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"periph.io/x/conn/v3/gpio"

	"github.com/nerrad567/thsensor/internal/device"
	"github.com/nerrad567/thsensor/internal/hw/board"
	"github.com/nerrad567/thsensor/internal/infrastructure/config"
	"github.com/nerrad567/thsensor/internal/infrastructure/database"
	"github.com/nerrad567/thsensor/internal/infrastructure/influxdb"
	"github.com/nerrad567/thsensor/internal/infrastructure/logging"
	"github.com/nerrad567/thsensor/internal/measurement"
	"github.com/nerrad567/thsensor/internal/modes"
	"github.com/nerrad567/thsensor/internal/portal"
	"github.com/nerrad567/thsensor/internal/settings"
	"github.com/nerrad567/thsensor/internal/telemetry"
	"github.com/nerrad567/thsensor/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil after a restart request or a signal, or the startup or
//     run loop failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting thsensor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer func() {
		_ = log.Close()
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	repo := measurement.NewSQLiteRepository(db.DB)
	nodeID, err := repo.EnsureNodeID(ctx, cfg.Node.ID)
	if err != nil {
		return fmt.Errorf("resolving node id: %w", err)
	}
	log.Info("node identity", "node_id", nodeID, "name", cfg.Node.Name)

	fs := afero.NewOsFs()
	store := settings.NewStore(fs, cfg.Settings.Path)
	stored, err := loadSettings(store, log)
	if err != nil {
		return err
	}
	log.Info("settings loaded", "path", store.Path(), "configured", stored != nil)

	hw, err := setupHardware(cfg.Hardware, log)
	if err != nil {
		return fmt.Errorf("setting up hardware: %w", err)
	}

	publisherOpts := []telemetry.Option{telemetry.WithLogger(log.With("component", "telemetry"))}
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			// Samples are still recorded locally and published over MQTT.
			log.Warn("InfluxDB unavailable, export disabled", "error", influxErr)
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			publisherOpts = append(publisherOpts, telemetry.WithExporter(influxClient))
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	pub := telemetry.NewPublisher(cfg.MQTT, nodeID, publisherOpts...)
	defer func() {
		if closeErr := pub.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	dev, err := device.New(device.Options{
		Logger:         log.With("component", "device"),
		Indicator:      hw.indicator,
		Button:         hw.button,
		Settings:       stored,
		Platform:       hw.platform,
		SensorPin:      cfg.Hardware.SensorPin,
		SensorDriver:   cfg.Hardware.SensorDriver,
		RemoveSettings: store.Remove,
		WorkDir:        cfg.Settings.WorkDir,
		Fs:             fs,
		CycleDelay:     cfg.CycleDelay(),
		States: modes.States(modes.Deps{
			NodeID:          nodeID,
			Store:           store,
			NewPortal:       newPortalFactory(cfg.Portal, log.With("component", "portal"), nodeID),
			PortalTimeout:   cfg.PortalTimeout(),
			Recorder:        repo,
			Retention:       cfg.Retention(),
			Publisher:       pub,
			ErrorRetryDelay: cfg.ErrorRetryDelay(),
		}),
	})
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}

	log.Info("initialisation complete, starting state machine")
	err = dev.Run(ctx)
	switch {
	case err == nil:
		log.Info("thsensor stopped")
		return nil
	case errors.Is(err, context.Canceled):
		log.Info("shutdown signal received, thsensor stopped")
		return nil
	default:
		return fmt.Errorf("running device: %w", err)
	}
}

// getConfigPath returns the configuration file path.
// Uses THSENSOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("THSENSOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadSettings reads the stored settings. It returns a nil interface when
// the node is unconfigured. A file that does not parse is treated as
// unconfigured so the node boots into the configuration portal, where a
// submission or a factory reset replaces it.
func loadSettings(store *settings.Store, log *logging.Logger) (any, error) {
	v, err := store.Load()
	switch {
	case errors.Is(err, settings.ErrInvalidSettings):
		log.Warn("ignoring unreadable settings", "path", store.Path(), "error", err)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading settings: %w", err)
	case v == nil:
		return nil, nil
	}
	if _, ok := v.(map[string]any); !ok {
		log.Warn("stored settings are not a mapping", "path", store.Path(), "type", fmt.Sprintf("%T", v))
	}
	return v, nil
}

// hardware holds the board components handed to the device.
type hardware struct {
	platform  device.Platform
	button    device.Button
	indicator device.Indicator
}

// setupHardware opens the GPIO platform, the push button and the status
// LED. With hardware disabled the device runs without a platform and the
// indicator writes to the log.
func setupHardware(cfg config.HardwareConfig, log *logging.Logger) (hardware, error) {
	hw := hardware{indicator: board.NewLogIndicator(log.With("component", "indicator"))}
	if !cfg.Enabled {
		log.Info("hardware disabled, indicator logs colours")
		return hw, nil
	}

	p := board.NewPeriph()
	if err := p.Init(); err != nil {
		return hardware{}, err
	}
	hw.platform = p

	if cfg.ButtonPin != "" {
		pin, err := p.Pin(cfg.ButtonPin)
		if err != nil {
			return hardware{}, fmt.Errorf("button: %w", err)
		}
		btn, err := board.NewButton(pin, cfg.ButtonActiveLow)
		if err != nil {
			return hardware{}, err
		}
		hw.button = btn
	}

	if cfg.LED.Red != "" && cfg.LED.Green != "" && cfg.LED.Blue != "" {
		var pins [3]gpio.PinIO
		for i, name := range []string{cfg.LED.Red, cfg.LED.Green, cfg.LED.Blue} {
			pin, err := p.Pin(name)
			if err != nil {
				return hardware{}, fmt.Errorf("led: %w", err)
			}
			pins[i] = pin
		}
		led, err := board.NewRGB(pins[0], pins[1], pins[2])
		if err != nil {
			return hardware{}, err
		}
		hw.indicator = led
	}

	log.Info("hardware ready",
		"sensor_pin", cfg.SensorPin,
		"sensor_driver", cfg.SensorDriver,
		"button_pin", cfg.ButtonPin,
	)
	return hw, nil
}

// newPortalFactory builds a fresh portal each time the Configuration state
// runs. The settings shown by the portal are those the device had when the
// portal started.
func newPortalFactory(cfg config.PortalConfig, log *logging.Logger, nodeID string) modes.PortalFactory {
	return func(d *device.Device) (modes.Portal, error) {
		cur, ok := modes.CurrentSettings(d)
		srv, err := portal.New(portal.Deps{
			Config: cfg,
			Logger: log,
			NodeID: nodeID,
			Current: func() (settings.Settings, bool) {
				return cur, ok
			},
		})
		if err != nil {
			return nil, err
		}
		return srv, nil
	}
}
