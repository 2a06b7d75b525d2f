package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"wisefido-rppg/internal/models"
)

// EstimateSubject is the NATS subject of estimate events.
const EstimateSubject = "rppg.estimate"

// NATSPublisher is satisfied by *nats.Conn.
type NATSPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes estimate events with the session id in a header.
type NATSSink struct {
	conn    NATSPublisher
	subject string
}

func NewNATSSink(conn NATSPublisher, subject string) *NATSSink {
	if subject == "" {
		subject = EstimateSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Publish(_ context.Context, ev models.EstimateEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate event: %w", err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Header.Set("Session-Id", ev.SessionID)
	msg.Data = data
	return s.conn.PublishMsg(msg)
}
