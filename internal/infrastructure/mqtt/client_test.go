package mqtt

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/thsensor/internal/infrastructure/config"
)

// testConfig returns a broker-less MQTT configuration for option tests.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "thsensor-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Measurement", topics.Measurement("lab", "r101", "node-1"), "thsensor/lab/r101/node-1"},
		{"Measurement unassigned", topics.Measurement("", " ", "node-1"), "thsensor/unassigned/unassigned/node-1"},
		{"Measurement sanitised", topics.Measurement("a/b", "#1", "n+"), "thsensor/a_b/_1/n_"},
		{"Status", topics.Status("node-1"), "thsensor/status/node-1"},
		{"Fault", topics.Fault("node-1"), "thsensor/fault/node-1"},
		{"AllMeasurements", topics.AllMeasurements(), "thsensor/+/+/+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "node"
	cfg.Auth.Password = "secret"

	opts, err := buildClientOptions(cfg)
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "thsensor-test" {
		t.Errorf("ClientID = %q, want thsensor-test", opts.ClientID)
	}
	if opts.Username != "node" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want node/secret", opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Error("expected clean session with auto-reconnect")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.RootCAs != nil {
		t.Error("plain TCP connection should not carry custom roots")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts, err := buildClientOptions(cfg)
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS1.2", opts.TLSConfig)
	}
}

func TestBuildClientOptions_BadCACert(t *testing.T) {
	dir := t.TempDir()
	notPEM := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(notPEM, []byte("not a certificate"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.pem"), notPEM} {
		cfg := testConfig()
		cfg.Broker.TLS = true
		cfg.Broker.CACert = path

		if _, err := buildClientOptions(cfg); !errors.Is(err, ErrInvalidCACert) {
			t.Errorf("buildClientOptions(%s) error = %v, want ErrInvalidCACert", filepath.Base(path), err)
		}
	}
}

func TestConfigureLWT(t *testing.T) {
	opts, err := buildClientOptions(testConfig())
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	configureLWT(opts, "node-1")

	if !opts.WillEnabled || !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will enabled/retained/qos = %v/%v/%d, want true/true/1", opts.WillEnabled, opts.WillRetained, opts.WillQos)
	}
	if opts.WillTopic != "thsensor/status/node-1" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var p statusPayload
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if p.Status != statusOffline || p.Reason != reasonUnexpected || p.NodeID != "node-1" {
		t.Errorf("will payload = %+v", p)
	}
}

func TestBuildStatusPayload_OmitsEmptyReason(t *testing.T) {
	payload := string(buildStatusPayload("node-1", statusOnline, ""))
	if strings.Contains(payload, "reason") {
		t.Errorf("online payload %s should not carry a reason", payload)
	}
	if !strings.Contains(payload, `"status":"online"`) {
		t.Errorf("payload %s missing status", payload)
	}
}

func TestConnect_NoBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Host = ""

	if _, err := Connect(cfg, "node-1"); !errors.Is(err, ErrNoBroker) {
		t.Errorf("Connect() error = %v, want ErrNoBroker", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"invalid qos", "thsensor/a", []byte("x"), 3, ErrInvalidQoS},
		{"oversized", "thsensor/a", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"not connected", "thsensor/a", []byte("x"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishJSON_EncodingError(t *testing.T) {
	c := &Client{cfg: testConfig()}
	err := c.PublishJSON("thsensor/a", map[string]any{"bad": make(chan int)}, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON() error = %v, want ErrPublishFailed", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}
