// Package publish streams measurements to an MQTT broker for live
// consumers. Publishing is best-effort: a broker outage costs the
// stream, never the capture.
package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = time.Second
)

// Message is the wire form of one measurement.
type Message struct {
	Sensor    string  `json:"sensor"`
	Sequence  int     `json:"sequence"`
	Distance  float64 `json:"distance"`
	RawTiming float64 `json:"raw_timing"`
	Timestamp float64 `json:"timestamp"`
}

// Publisher sends measurements to <topic>/<sensor name>.
type Publisher struct {
	cli   mqtt.Client
	topic string
}

// New connects to the broker and returns a publisher rooted at topic.
func New(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s failed: %w", broker, err)
	}
	return &Publisher{cli: cli, topic: topic}, nil
}

// Publish sends one measurement. Failures are logged and dropped so
// the capture path never blocks on the broker.
func (p *Publisher) Publish(m sensor.Measurement) {
	payload, err := json.Marshal(Message{
		Sensor:    m.SensorName,
		Sequence:  m.Sequence,
		Distance:  m.Distance,
		RawTiming: m.RawTiming,
		Timestamp: float64(m.Wall.UnixMicro()) / 1e6,
	})
	if err != nil {
		log.Printf("publish: failed to encode measurement: %v", err)
		return
	}

	topic := p.topic + "/" + m.SensorName
	token := p.cli.Publish(topic, 0, false, payload)
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			log.Printf("publish: %s: %v", topic, token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(uint(connectTimeout.Milliseconds()))
}
