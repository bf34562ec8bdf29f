package pkg

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
)

// NATSPublisher implements events.Publisher over core NATS.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber implements events.Subscriber over core NATS.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger apt.Logger
}

func NewNATSSubscriber(url string, logger apt.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn, logger: logger}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	_, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		// Core NATS has no redelivery; a failed handler gets a log line
		// and the message is gone.
		if err := handler(ctx, msg.Data); err != nil {
			s.logger.Errorf("Handler failed for message on %s: %v", topic, err)
		}
	})
	return err
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
