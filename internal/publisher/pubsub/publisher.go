// Package pubsub implements a Google Cloud Pub/Sub publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// EventTypeAttribute names the message attribute carrying the event type.
const EventTypeAttribute = "event_type"

// Publisher wraps a Pub/Sub publisher client bound to one topic.
type Publisher struct {
	publisher *pubsub.Publisher
	eventType string
}

// New creates a Publisher. eventType is attached to every message when set.
func New(publisher *pubsub.Publisher, eventType string) *Publisher {
	return &Publisher{publisher: publisher, eventType: eventType}
}

// Publish marshals the payload to JSON and waits for the server id. The
// topic argument is informational; the wrapped publisher fixes the topic.
func (p *Publisher) Publish(ctx context.Context, _ string, payload any) (string, error) {
	if p.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data}
	if p.eventType != "" {
		msg.Attributes = map[string]string{EventTypeAttribute: p.eventType}
	}
	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}
