// Package mq provides a broker-agnostic publish/subscribe layer used
// for downstream user events and for the signup ingest queue.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudacct/accountsvc/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a nack.
type Handler func(ctx context.Context, msg Message) error

// Broker defines the operations the service needs from a message broker.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewBroker constructs the broker selected by configuration.
func NewBroker(ctx context.Context, cfg config.Config) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Broker.Backend)) {
	case "", "rabbitmq":
		return NewRabbitMQBroker(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Broker.Backend)
	}
}
