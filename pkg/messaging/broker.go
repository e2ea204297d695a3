package messaging

import (
	"context"
)

// Broker defines the interface for message brokers used by the
// side-effect dispatcher. Publish must not be assumed durable; the
// outbox table is the source of truth for undelivered events.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels consumed by external collaborators.
const (
	ChannelAppointmentTransition = "appointment.transition"
	ChannelNotification          = "notification.send"
	ChannelLoyaltyAccrual        = "loyalty.accrual"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
