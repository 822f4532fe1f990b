package notifier

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// MaxMulticastTokens is the FCM per-request token limit.
const MaxMulticastTokens = 500

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMGateway struct {
	client multicastSender
}

func NewFCM(client *messaging.Client) *FCMGateway {
	return &FCMGateway{client: client}
}

// SendMulticast splits tokens into batches of MaxMulticastTokens and sends
// them in order. It stops at the first failed batch.
func (g *FCMGateway) SendMulticast(ctx context.Context, tokens []string, msg Message) (int, error) {
	sent := 0
	for start := 0; start < len(tokens); start += MaxMulticastTokens {
		end := min(start+MaxMulticastTokens, len(tokens))
		resp, err := g.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: tokens[start:end],
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
		})
		if err != nil {
			return sent, fmt.Errorf("fcm multicast [%d:%d]: %w", start, end, err)
		}
		sent += resp.SuccessCount
	}
	return sent, nil
}
