package stripecli

import (
	"context"
	"strconv"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// Metadata keys attached to every checkout session and read back by the
// webhook.
const (
	MetaEventID    = "eventId"
	MetaAmount     = "amount"
	MetaEventTitle = "eventTitle"
	MetaUID        = "uid"
)

type SessionRequest struct {
	EventID    string
	EventTitle string
	UID        string
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

func (r SessionRequest) Metadata() map[string]string {
	return map[string]string{
		MetaEventID:    r.EventID,
		MetaAmount:     strconv.FormatInt(r.Amount, 10),
		MetaEventTitle: r.EventTitle,
		MetaUID:        r.UID,
	}
}

type Session struct {
	ID       string
	URL      string
	Metadata map[string]string
}

// Client wraps a per-instance Stripe API client; the package-level
// stripe.Key is never set.
type Client struct {
	api *client.API
}

func NewClient(secretKey string) *Client {
	return NewClientWithBackends(secretKey, nil)
}

// NewClientWithBackends lets callers point the client at another API base,
// e.g. stripe-mock.
func NewClientWithBackends(secretKey string, backends *stripe.Backends) *Client {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Client{api: api}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.EventTitle),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UID),
	}
	params.Context = ctx
	for k, v := range req.Metadata() {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: s.ID, URL: s.URL, Metadata: s.Metadata}, nil
}
