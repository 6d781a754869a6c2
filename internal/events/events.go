// Package events publishes dashboard notifications to an optional broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Subjects published by the dashboard, before the configured prefix.
const (
	SubjectForecastGenerated = "forecast.generated"
	SubjectAnomalyScan       = "anomaly.scan"
)

// Publisher defines the interface for publishing events
type Publisher interface {
	// Publish sends data to subject and waits for the broker to accept it
	Publish(ctx context.Context, subject string, data []byte) error

	// Close releases broker connections
	Close() error
}

// PublishJSON encodes v and publishes it on subject
func PublishJSON(ctx context.Context, p Publisher, subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event for %s: %w", subject, err)
	}
	return p.Publish(ctx, subject, data)
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
