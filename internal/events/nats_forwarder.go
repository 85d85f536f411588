package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessagePublisher is the subset of *nats.Conn used to forward events.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Subject returns the bus subject for an event type.
func Subject(prefix string, eventType EventType) string {
	if prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}

// NATSForwarder returns a handler that publishes events as JSON on the bus.
func NATSForwarder(publisher MessagePublisher, prefix string) EventHandler {
	return func(_ context.Context, event Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.ID, err)
		}
		return publisher.Publish(Subject(prefix, event.Type), data)
	}
}
