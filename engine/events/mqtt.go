package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the topic load events are published to.
const DefaultTopic = "oxy/gltf/load"

// BrokerURL returns the MQTT broker URL from MQTT_URL or the local default.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// NewMQTTClient creates a paho client for BrokerURL. It does not connect.
//
// Parameters:
//   - clientID: the MQTT client identifier
//
// Returns:
//   - paho.Client: the unconnected client
func NewMQTTClient(clientID string) paho.Client {
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL()).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	return paho.NewClient(opts)
}

// ConnectTimeoutError indicates the broker did not acknowledge the connection in time.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// PublishTimeoutError indicates the broker did not acknowledge a publish in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}

// MQTTPublisher publishes events as JSON to an MQTT topic.
type MQTTPublisher struct {
	client  paho.Client
	topic   string
	qos     byte
	timeout time.Duration
}

var _ Publisher = &MQTTPublisher{}

// MQTTPublisherOption is a functional option for configuring an MQTTPublisher.
type MQTTPublisherOption func(*MQTTPublisher)

// WithTopic sets the topic events are published to.
func WithTopic(topic string) MQTTPublisherOption {
	return func(p *MQTTPublisher) {
		p.topic = topic
	}
}

// WithQoS sets the MQTT quality of service level.
func WithQoS(qos byte) MQTTPublisherOption {
	return func(p *MQTTPublisher) {
		p.qos = qos
	}
}

// WithPublishTimeout sets how long Publish waits for the broker.
func WithPublishTimeout(d time.Duration) MQTTPublisherOption {
	return func(p *MQTTPublisher) {
		p.timeout = d
	}
}

// NewMQTTPublisher creates a publisher on top of a paho client.
//
// Parameters:
//   - client: the MQTT client; the publisher disconnects it on Close
//   - options: variadic list of MQTTPublisherOption functions
//
// Returns:
//   - *MQTTPublisher: the publisher
func NewMQTTPublisher(client paho.Client, options ...MQTTPublisherOption) *MQTTPublisher {
	if client == nil {
		panic("events: NewMQTTPublisher requires a non-nil client")
	}
	p := &MQTTPublisher{
		client:  client,
		topic:   DefaultTopic,
		qos:     1,
		timeout: 5 * time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Connect connects the underlying client, waiting at most the publish timeout.
//
// Returns:
//   - error: *ConnectTimeoutError or the broker's error
func (p *MQTTPublisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Publish sends e as JSON. Waiting stops early when ctx is done.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return &PublishTimeoutError{Topic: p.topic}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects the client.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}
