package sink

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ubiklab/envrelay/internal/reading"
)

// MQTT publishes each reading as a retained JSON record on a per-variant
// topic under the configured prefix.
type MQTT struct {
	client      mqtt.Client
	topicThermo string
	topicCo2    string
}

func NewMQTT(broker, clientID, topicPrefix string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &MQTT{
		client:      client,
		topicThermo: topicPrefix + "/" + reading.Thermometer.String(),
		topicCo2:    topicPrefix + "/" + reading.Co2Meter.String(),
	}, nil
}

func (s *MQTT) Write(_ context.Context, r reading.Reading) error {
	payload, err := json.Marshal(newRecord(r))
	if err != nil {
		return err
	}

	topic := s.topicThermo
	if r.Kind == reading.Co2Meter {
		topic = s.topicCo2
	}

	if token := s.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish to %v: %w", topic, token.Error())
	}
	return nil
}

func (s *MQTT) Close() error {
	s.client.Disconnect(250)
	return nil
}
