// Package notify delivers one-time codes to the mail pipeline through a
// message broker. The server only learns whether publishing succeeded.
package notify

import (
	"context"
	"errors"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error asks for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by RabbitMQBackend, PubSubBackend and LogBackend.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

var ErrSubscribeUnsupported = errors.New("backend does not support subscribe")
