package stripecli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

var ErrSignature = errors.New("webhook signature verification failed")

// WebhookVerifier checks the Stripe-Signature header against the endpoint
// secret before the payload is trusted.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

func (v *WebhookVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance: v.tolerance,
		// the account's API version may lead the library's; only metadata is read
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return ev, nil
}

// CompletedSession decodes the checkout session carried by a
// checkout.session.completed event.
func CompletedSession(ev stripe.Event) (*stripe.CheckoutSession, error) {
	if ev.Data == nil {
		return nil, errors.New("event has no data")
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &cs, nil
}
