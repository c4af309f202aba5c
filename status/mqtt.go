package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/optodyne/go-laser/logger"
)

// Token wait bounds for broker operations.
const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// disconnectQuiesceMS is the paho disconnect grace period.
	disconnectQuiesceMS = 250
)

// ErrPublishTimeout indicates the broker did not acknowledge a publish in
// time.
var ErrPublishTimeout = errors.New("status: publish timeout")

// Config holds the MQTT sink settings.
type Config struct {
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	StatusTopic string `yaml:"status_topic"`
}

// MQTTSink publishes status payloads to an MQTT broker. The broker
// connection announces itself online on the status topic and leaves an
// "offline" last-will so consumers observe unclean disconnects.
type MQTTSink struct {
	client paho.Client
	cfg    Config
	logger logger.Logger
}

var _ Sink = (*MQTTSink)(nil)

// NewMQTTSink connects to the broker and returns the sink.
func NewMQTTSink(cfg Config, l logger.Logger) (*MQTTSink, error) {
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.With("sink", "mqtt", "broker", cfg.Broker)

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)

	if cfg.StatusTopic != "" {
		opts.SetWill(cfg.StatusTopic, "offline", 1, true)
		opts.SetOnConnectHandler(func(client paho.Client) {
			if token := client.Publish(cfg.StatusTopic, 1, true, "online"); token.Wait() && token.Error() != nil {
				l.Warn("online status publish failed", "error", token.Error())
			}
		})
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		l.Warn("broker connection lost", "error", err)
	})

	sink := &MQTTSink{
		client: paho.NewClient(opts),
		cfg:    cfg,
		logger: l,
	}

	token := sink.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("status: broker connect timeout after %v", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("status: broker connect: %w", err)
	}

	l.Info("connected to broker")

	return sink, nil
}

// Publish delivers payload on topic at QoS 1.
func (s *MQTTSink) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	token := s.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: topic %s", ErrPublishTimeout, topic)
	}

	return token.Error()
}

// Close publishes the offline status and disconnects from the broker.
func (s *MQTTSink) Close() {
	if !s.client.IsConnected() {
		return
	}

	if s.cfg.StatusTopic != "" {
		token := s.client.Publish(s.cfg.StatusTopic, 1, true, "offline")
		token.WaitTimeout(publishTimeout)
	}

	s.client.Disconnect(disconnectQuiesceMS)
	s.logger.Info("disconnected from broker")
}
