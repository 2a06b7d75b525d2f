package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-rppg/internal/models"
)

// MQTTPublisher is the part of the MQTT client the sink needs.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// EstimateTopic is the per-session MQTT topic of estimates.
func EstimateTopic(sessionID string) string {
	return fmt.Sprintf("rppg/%s/estimate", sessionID)
}

// MQTTSink publishes estimates on EstimateTopic, retained so late subscribers see the latest.
type MQTTSink struct {
	client MQTTPublisher
	qos    byte
}

func NewMQTTSink(client MQTTPublisher, qos byte) *MQTTSink {
	return &MQTTSink{client: client, qos: qos}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Publish(_ context.Context, ev models.EstimateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate event: %w", err)
	}
	return s.client.Publish(EstimateTopic(ev.SessionID), s.qos, true, payload)
}
