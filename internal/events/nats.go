package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject is the NATS subject an event type is published on.
func Subject(eventType string) string {
	return "forum." + eventType
}

// NATSPublisher publishes events on core NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher connects to url. The connection retries in the background
// so a broker that starts after the API does not block startup.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("forum-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, evt Event) error {
	payload, err := evt.encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.nc.Publish(Subject(evt.Type), payload)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	err := p.nc.Drain()
	if err != nil {
		p.nc.Close()
	}
	return err
}
