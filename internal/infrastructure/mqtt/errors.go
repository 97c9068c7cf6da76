package mqtt

import "errors"

// Domain errors for the mqtt package. Check them with errors.Is.
var (
	// ErrNoBroker is returned by Connect when no broker host is known.
	ErrNoBroker = errors.New("mqtt: no broker host configured")

	// ErrConnectionFailed is returned when the broker does not accept the session in time.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrInvalidCACert is returned when the CA file cannot be read or holds no certificate.
	ErrInvalidCACert = errors.New("mqtt: invalid CA certificate")

	// ErrNotConnected is returned when publishing while the session is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed is returned when the broker does not acknowledge a message.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: QoS must be 0, 1 or 2")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
