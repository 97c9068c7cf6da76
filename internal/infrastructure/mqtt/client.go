package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/thsensor/internal/infrastructure/config"
)

// Client is the node's connection to its telemetry broker.
//
// Besides plain publishing it maintains the node's retained status topic:
// "online" after every (re)connect, "offline" with reason
// graceful_shutdown on Close, and the broker's last will (reason
// unexpected_disconnect) when the node vanishes. Paho reconnects in the background with backoff.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	nodeID string

	online atomic.Bool

	hookMu       sync.Mutex
	onConnect    func()
	onDisconnect func(err error)
}

// Connect dials the broker and waits for the session.
//
// An empty client id becomes "thsensor-<nodeID>". The last will and the
// online status both go to thsensor/status/<nodeID>.
//
// Parameters:
//   - cfg: Broker configuration, already merged with the user settings
//   - nodeID: Node identity
//
// Returns:
//   - *Client: Connected client
//   - error: ErrNoBroker, ErrInvalidCACert or ErrConnectionFailed
func Connect(cfg config.MQTTConfig, nodeID string) (*Client, error) {
	if cfg.Broker.Host == "" {
		return nil, ErrNoBroker
	}
	if cfg.Broker.ClientID == "" {
		cfg.Broker.ClientID = "thsensor-" + nodeID
	}

	opts, err := buildClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	configureLWT(opts, nodeID)

	c := &Client{cfg: cfg, nodeID: nodeID}
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })

	c.client = pahomqtt.NewClient(opts)
	if err := await(c.client.Connect(), defaultConnectTimeout); err != nil {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}
	// The connect handler runs on its own goroutine and may lag behind.
	c.online.Store(true)
	return c, nil
}

// await waits for a paho token, turning a timeout into an error.
func await(token pahomqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timeout after %v", timeout)
	}
	return token.Error()
}

// NodeID returns the node identity the client publishes for.
func (c *Client) NodeID() string {
	return c.nodeID
}

func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	return c.client.Publish(Topics{}.Status(c.nodeID), byte(c.cfg.QoS), true,
		buildStatusPayload(c.nodeID, status, reason))
}

func (c *Client) connected() {
	c.online.Store(true)
	c.publishStatus(statusOnline, "")

	c.hookMu.Lock()
	hook := c.onConnect
	c.hookMu.Unlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) lost(err error) {
	c.online.Store(false)

	c.hookMu.Lock()
	hook := c.onDisconnect
	c.hookMu.Unlock()
	if hook != nil {
		hook(err)
	}
}

// Close announces a clean shutdown on the status topic and disconnects.
// It is safe on a nil or never-connected Client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.online.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the session is currently up.
func (c *Client) IsConnected() bool {
	return c != nil && c.client != nil && c.online.Load() && c.client.IsConnected()
}

// SetOnConnect registers a hook run after the initial connect and every
// reconnect.
func (c *Client) SetOnConnect(hook func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onConnect = hook
}

// SetOnDisconnect registers a hook run when the session drops.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onDisconnect = hook
}
