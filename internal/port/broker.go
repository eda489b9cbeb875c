package port

import (
	"context"
	"fmt"
	"strings"
)

type EventPublisher interface {
	// Publish sends body on the orders exchange under routingKey. It returns
	// once the broker has confirmed the message.
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// Decision is a consumer's verdict on one delivered message.
type Decision int

const (
	Ack Decision = iota
	Requeue
	Discard
)

func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// UnmarshalText accepts "ack", "requeue" and "discard".
func (d *Decision) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "ack":
		*d = Ack
	case "requeue":
		*d = Requeue
	case "discard":
		*d = Discard
	default:
		return fmt.Errorf("unknown decision %q", text)
	}
	return nil
}

// MessageHandler processes one message body and decides how to settle it.
type MessageHandler func(ctx context.Context, body []byte) Decision
