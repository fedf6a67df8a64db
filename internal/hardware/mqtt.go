package hardware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	logx "moodybell/pkg/logx"
)

const (
	payloadOn  = "on"
	payloadOff = "off"
)

// publisher is the slice of mqtt.Client the relay needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// MQTTRelay switches a networked relay by publishing "on"/"off".
type MQTTRelay struct {
	log     logx.Logger
	client  publisher
	topic   string
	qos     byte
	timeout time.Duration
}

// DialMQTT connects to the broker and returns a relay sink. The client
// reconnects on its own after the first successful connect.
func DialMQTT(cfg MQTTConfig, log logx.Logger) (*MQTTRelay, error) {
	broker := strings.TrimSpace(cfg.Broker)
	if broker == "" {
		return nil, errors.New("mqtt.broker is required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "moodybell"
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	log = log.With(logx.String("broker", broker))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(mqtt.Client) { log.Info("mqtt connected") }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) { log.Warn("mqtt connection lost", logx.Err(err)) }

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect %s: timed out after %s", broker, connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}
	return newMQTTRelay(client, cfg, log), nil
}

func newMQTTRelay(client publisher, cfg MQTTConfig, log logx.Logger) *MQTTRelay {
	topic := cfg.Topic
	if topic == "" {
		topic = "moodybell/relay"
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MQTTRelay{log: log.With(logx.String("topic", topic)), client: client, topic: topic, qos: cfg.QoS, timeout: timeout}
}

func (r *MQTTRelay) Activate()    { r.publish(payloadOn) }
func (r *MQTTRelay) Deactivate()  { r.publish(payloadOff) }
func (r *MQTTRelay) Name() string { return "mqtt" }

func (r *MQTTRelay) Available() bool { return r.client.IsConnectionOpen() }

func (r *MQTTRelay) Close() error {
	r.publish(payloadOff)
	r.client.Disconnect(250)
	return nil
}

func (r *MQTTRelay) publish(payload string) {
	tok := r.client.Publish(r.topic, r.qos, false, payload)
	if !tok.WaitTimeout(r.timeout) {
		r.log.Warn("mqtt publish timed out", logx.String("payload", payload), logx.Duration("timeout", r.timeout))
		return
	}
	if err := tok.Error(); err != nil {
		r.log.Error("mqtt publish failed", logx.String("payload", payload), logx.Err(err))
	}
}
