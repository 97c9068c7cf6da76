package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/thsensor/internal/infrastructure/config"
	"github.com/nerrad567/thsensor/internal/infrastructure/influxdb"
	"github.com/nerrad567/thsensor/internal/infrastructure/mqtt"
	"github.com/nerrad567/thsensor/internal/settings"
)

// Client is the part of the MQTT client the publisher uses.
type Client interface {
	PublishJSON(topic string, v any, retained bool) error
	IsConnected() bool
	Close() error
}

// Connector opens an MQTT client for a broker configuration.
type Connector func(cfg config.MQTTConfig, nodeID string) (Client, error)

// Exporter receives samples for time-series storage.
type Exporter interface {
	WriteMeasurement(s influxdb.Sample)
	WriteFault(nodeID, code string, at time.Time)
}

// Logger defines the logging interface used by the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sample is a validated reading in degrees Celsius.
type Sample struct {
	Temperature float64
	Humidity    float64
	TakenAt     time.Time
}

// Message is the JSON payload published for a sample.
type Message struct {
	NodeID      string  `json:"node_id"`
	Department  string  `json:"department,omitempty"`
	Room        string  `json:"room,omitempty"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Units       string  `json:"units"`
	UnitSymbol  string  `json:"unit_symbol"`
	Timestamp   string  `json:"timestamp"`
}

// FaultMessage is the JSON payload published for a fault.
type FaultMessage struct {
	NodeID    string `json:"node_id"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithConnector replaces the MQTT connector. Used by tests.
func WithConnector(c Connector) Option {
	return func(p *Publisher) { p.connect = c }
}

// WithExporter adds a time-series exporter.
func WithExporter(e Exporter) Option {
	return func(p *Publisher) { p.export = e }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// Publisher sends samples and faults to MQTT and, optionally, InfluxDB.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Publisher struct {
	base    config.MQTTConfig
	nodeID  string
	connect Connector
	export  Exporter
	logger  Logger

	mu     sync.Mutex
	client Client
	active config.MQTTConfig
	closed bool
}

// NewPublisher creates a publisher for the node.
//
// Parameters:
//   - base: MQTT section of the node configuration, used for defaults
//   - nodeID: Node identity placed in topics and payloads
//   - opts: Optional connector, exporter and logger
func NewPublisher(base config.MQTTConfig, nodeID string, opts ...Option) *Publisher {
	p := &Publisher{
		base:   base,
		nodeID: nodeID,
		connect: func(cfg config.MQTTConfig, nodeID string) (Client, error) {
			return mqtt.Connect(cfg, nodeID)
		},
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NodeID returns the node identity.
func (p *Publisher) NodeID() string {
	return p.nodeID
}

// BrokerConfig merges the broker fields of the user settings over the node
// configuration. It reports false when no broker host is known.
func BrokerConfig(base config.MQTTConfig, s settings.MQTT) (config.MQTTConfig, bool) {
	cfg := base
	if s.Server != "" {
		cfg.Broker.Host = s.Server
		cfg.Broker.TLS = s.SSL
		cfg.Broker.CACert = s.Cert
		if s.Port > 0 {
			cfg.Broker.Port = s.Port
		}
		if s.User != "" {
			cfg.Auth.Username = s.User
			cfg.Auth.Password = s.Password
		}
	}
	return cfg, cfg.Broker.Host != ""
}

// PublishMeasurement exports the sample and publishes it to
// thsensor/<department>/<room>/<node-id> in the configured units.
//
// The exporter is fed even when MQTT is unavailable.
//
// Returns:
//   - error: ErrNoBroker, a connection error or a publish error
func (p *Publisher) PublishMeasurement(s settings.Settings, sample Sample) error {
	if sample.TakenAt.IsZero() {
		sample.TakenAt = time.Now()
	}

	if p.export != nil {
		p.export.WriteMeasurement(influxdb.Sample{
			NodeID:      p.nodeID,
			Department:  s.Department,
			Room:        s.Room,
			Units:       s.Units,
			Temperature: sample.Temperature,
			Humidity:    sample.Humidity,
			TakenAt:     sample.TakenAt,
		})
	}

	client, err := p.clientFor(s.MQTT)
	if err != nil {
		return err
	}

	msg := Message{
		NodeID:      p.nodeID,
		Department:  s.Department,
		Room:        s.Room,
		Temperature: settings.ConvertTemperature(sample.Temperature, s.Units),
		Humidity:    sample.Humidity,
		Units:       s.Units,
		UnitSymbol:  settings.UnitSymbol(s.Units),
		Timestamp:   sample.TakenAt.UTC().Format(time.RFC3339),
	}
	topic := mqtt.Topics{}.Measurement(s.Department, s.Room, p.nodeID)
	if err := client.PublishJSON(topic, msg, false); err != nil {
		return fmt.Errorf("publishing measurement: %w", err)
	}
	return nil
}

// PublishFault reports a fault. The broker comes from s when the node is
// configured, otherwise from the node configuration alone.
func (p *Publisher) PublishFault(s *settings.Settings, code string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	if p.export != nil {
		p.export.WriteFault(p.nodeID, code, at)
	}

	var broker settings.MQTT
	if s != nil {
		broker = s.MQTT
	}
	client, err := p.clientFor(broker)
	if err != nil {
		return err
	}

	msg := FaultMessage{
		NodeID:    p.nodeID,
		Code:      code,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
	if err := client.PublishJSON(mqtt.Topics{}.Fault(p.nodeID), msg, false); err != nil {
		return fmt.Errorf("publishing fault: %w", err)
	}
	return nil
}

// clientFor returns a client for the broker in s, reconnecting when the
// broker configuration differs from the live connection.
func (p *Publisher) clientFor(s settings.MQTT) (Client, error) {
	cfg, ok := BrokerConfig(p.base, s)
	if !ok {
		return nil, ErrNoBroker
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.client != nil && p.active == cfg {
		return p.client, nil
	}
	if p.client != nil {
		p.logger.Debug("mqtt broker changed, reconnecting",
			"broker", cfg.Broker.Host,
		)
		if err := p.client.Close(); err != nil {
			p.logger.Warn("closing previous mqtt client failed", "error", err)
		}
		p.client = nil
	}

	client, err := p.connect(cfg, p.nodeID)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker.Host, err)
	}
	p.client = client
	p.active = cfg
	return client, nil
}

// Close disconnects from the broker. Further publishes return ErrClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
