package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes dispatched events on NATS subjects of the form
// <prefix>.<event type>.
type NATSForwarder struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// NewNATSForwarder builds a forwarder. An empty prefix defaults to "incidents".
func NewNATSForwarder(publisher Publisher, prefix string, logger *zap.Logger) *NATSForwarder {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "incidents"
	}
	return &NATSForwarder{publisher: publisher, prefix: prefix, logger: logger}
}

// Register subscribes the forwarder to every incident event.
func (f *NATSForwarder) Register(dispatcher Dispatcher) {
	if f == nil || f.publisher == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, f.forward)
	}
}

// Subject returns the subject an event type is published on.
func (f *NATSForwarder) Subject(eventType EventType) string {
	return f.prefix + "." + string(eventType)
}

func (f *NATSForwarder) forward(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	subject := f.Subject(event.Type)
	if err := f.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	f.logger.Debug("event forwarded",
		zap.String("subject", subject),
		zap.String("event_id", event.ID),
		zap.String("incident_id", event.IncidentID))
	return nil
}
