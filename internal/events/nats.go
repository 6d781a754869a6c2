package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/enrollwatch/internal/utils"
)

// NATSPublisher publishes on NATS core subjects
type NATSPublisher struct {
	conn *nats.Conn
}

// newNATSPublisher connects to the NATS server at url
func newNATSPublisher(url, password string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("enrollwatch"),
		nats.Timeout(utils.EventConnectTimeout),
	}
	if password != "" {
		opts = append(opts, nats.Token(password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

// Publish sends data and flushes so the server has seen it before returning
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, utils.EventPublishTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Drain()
}
