package messaging

import (
	"context"
)

// Broker is the fire-and-forget channel to the notification/audit sink.
// The engine never waits on, or depends on, delivery.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
