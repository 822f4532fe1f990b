// Package notifier delivers push notifications to device tokens.
package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

type Message struct {
	Title string
	Body  string
}

// PushGateway sends one message to many device tokens and reports how many
// deliveries succeeded.
type PushGateway interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) (int, error)
}

// ConsoleGateway logs instead of sending. Used for local runs without FCM
// credentials.
type ConsoleGateway struct {
	log zerolog.Logger
}

func NewConsole(log zerolog.Logger) *ConsoleGateway {
	return &ConsoleGateway{log: log}
}

func (c *ConsoleGateway) SendMulticast(_ context.Context, tokens []string, msg Message) (int, error) {
	c.log.Info().Int("tokens", len(tokens)).Str("title", msg.Title).Str("body", msg.Body).Msg("[notify] push")
	return len(tokens), nil
}
