package dean

import (
	"errors"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the part of an mqtt.Client a MqttSocket needs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MqttSocket is a send-only socket which publishes every msg broadcast on the
// bus to an MQTT topic.  Publishing happens on the socket's own goroutine;
// msgs arriving while the outbox is full are dropped.
type MqttSocket struct {
	socket
	pub     Publisher
	topic   string
	timeout time.Duration
	out     *outbox
	done    chan struct{}
}

var errPublishTimeout = errors.New("mqtt publish timed out")

// NewMqttSocket starts the publisher goroutine; Close stops it
func NewMqttSocket(name string, pub Publisher, topic string, bus *Bus) *MqttSocket {
	m := &MqttSocket{
		socket:  socket{"mqtt:" + name + "::" + topic, "", SocketFlagBcast, bus},
		pub:     pub,
		topic:   topic,
		timeout: time.Second,
		out:     newOutbox(outboxLen),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *MqttSocket) run() {
	defer close(m.done)
	m.out.drain(func(payload []byte) error {
		if err := m.publish(payload); err != nil {
			slog.Error("MQTT publish", "topic", m.topic, "err", err)
		}
		return nil
	})
}

func (m *MqttSocket) publish(payload []byte) error {
	token := m.pub.Publish(m.topic, 0, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (m *MqttSocket) Send(msg *Msg) error {
	return m.out.push(msg.payload)
}

// Close stops publishing and waits for the publisher goroutine to exit
func (m *MqttSocket) Close() {
	m.out.close()
	<-m.done
}

// DialMqtt connects to the MQTT broker and returns the connected client.
// The client reconnects on its own if the broker goes away.
func DialMqtt(broker, clientId string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientId).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Error("MQTT connection lost", "broker", broker, "err", err)
		})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	slog.Info("MQTT connected", "broker", broker, "client", clientId)
	return client, nil
}
