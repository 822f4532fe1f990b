package worker

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Doetheman/community-platform-template/services/notification-service/internal/domain"
	"github.com/Doetheman/community-platform-template/services/notification-service/internal/events"
)

type PostHandler interface {
	OnPostCreated(ctx context.Context, post domain.FeedPost) (int, error)
}

// Consumer drains deliveries and acks each one after the handler returns.
// Handler errors are requeued; undecodable payloads go to the dead letter
// exchange.
type Consumer struct {
	handler PostHandler
	log     zerolog.Logger
}

func NewConsumer(h PostHandler, log zerolog.Logger) *Consumer {
	return &Consumer{handler: h, log: log}
}

func (c *Consumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	log := c.log.With().Str("key", d.RoutingKey).Str("message_id", d.MessageId).Logger()
	err := c.handleDelivery(ctx, d)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, events.ErrDecode):
		log.Error().Err(err).Msg("[notify] bad payload -> Nack&drop")
		_ = d.Nack(false, false)
	default:
		log.Error().Err(err).Msg("[notify] handle error -> Nack&requeue")
		_ = d.Nack(false, true)
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case events.RKFeedCreated:
		ev, err := events.Decode[events.FeedCreated](d.Body)
		if err != nil {
			return err
		}
		_, err = c.handler.OnPostCreated(ctx, domain.FeedPost{
			ID:       ev.PostID,
			AuthorID: ev.AuthorID,
			Content:  ev.Content,
		})
		return err
	default:
		c.log.Warn().Str("key", d.RoutingKey).Msg("[notify] skip unknown key")
	}
	return nil
}
