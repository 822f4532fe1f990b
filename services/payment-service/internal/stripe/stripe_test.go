package stripecli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_test_1", "object": "checkout.session",
    "metadata": {"eventId": "E1", "uid": "U1", "amount": "1500", "eventTitle": "Meetup"}}}
}`

func sign(t *testing.T, secret string, body []byte, ts time.Time) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: ts,
	})
	return sp.Header
}

func TestWebhookVerifier_Valid(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	body := []byte(completedEvent)

	ev, err := v.Verify(body, sign(t, "whsec_test", body, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, stripe.EventTypeCheckoutSessionCompleted, ev.Type)

	cs, err := CompletedSession(ev)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", cs.ID)
	assert.Equal(t, "E1", cs.Metadata[MetaEventID])
	assert.Equal(t, "U1", cs.Metadata[MetaUID])
}

func TestWebhookVerifier_WrongSecret(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	body := []byte(completedEvent)

	_, err := v.Verify(body, sign(t, "whsec_other", body, time.Now()))
	assert.ErrorIs(t, err, ErrSignature)
}

func TestWebhookVerifier_TamperedBody(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	body := []byte(completedEvent)
	header := sign(t, "whsec_test", body, time.Now())

	tampered := []byte(completedEvent + " ")
	_, err := v.Verify(tampered, header)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestWebhookVerifier_StaleTimestamp(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	body := []byte(completedEvent)

	_, err := v.Verify(body, sign(t, "whsec_test", body, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrSignature)
}

func TestWebhookVerifier_MissingHeader(t *testing.T) {
	_, err := NewWebhookVerifier("whsec_test").Verify([]byte(completedEvent), "")
	assert.ErrorIs(t, err, ErrSignature)
}

func TestClient_CreateCheckoutSession(t *testing.T) {
	var form url.Values
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(b))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","metadata":{"eventId":"E1","uid":"U1","amount":"1500","eventTitle":"Meetup"}}`)
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	c := NewClientWithBackends("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	s, err := c.CreateCheckoutSession(context.Background(), SessionRequest{
		EventID:    "E1",
		EventTitle: "Meetup",
		UID:        "U1",
		Amount:     1500,
		Currency:   "usd",
		SuccessURL: "https://app.example/payment-success",
		CancelURL:  "https://app.example/payment-cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", s.URL)

	assert.Equal(t, "/v1/checkout/sessions", path)
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "1500", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "Meetup", form.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "E1", form.Get("metadata[eventId]"))
	assert.Equal(t, "U1", form.Get("metadata[uid]"))
	assert.Equal(t, "1500", form.Get("metadata[amount]"))
	assert.Equal(t, "Meetup", form.Get("metadata[eventTitle]"))
}
