package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/service"
)

// Checkout for a paid event, then the verified completion webhook built
// from the session metadata.
func TestPaidEventFlow(t *testing.T) {
	for _, pricing := range []service.PricingPolicy{service.PricingEvent, service.PricingCaller} {
		t.Run(string(pricing), func(t *testing.T) {
			env := newTestEnv(t, pricing, AcknowledgeRegardless)
			env.store.events["E1"] = &domain.Event{ID: "E1", Title: "Meetup", IsPaid: true, Price: 1500}

			code, resp := callCheckout(t, env, bearer(t, "U1"), `{"data":{"eventId":"E1","amount":1500,"eventTitle":"Meetup"}}`)
			require.Equal(t, http.StatusOK, code)
			require.NotNil(t, resp.Result)
			assert.Equal(t, "cs_test_E1", resp.Result.SessionID)
			assert.NotEmpty(t, resp.Result.SessionURL)

			require.Len(t, env.stripe.sessions, 1)
			meta := env.stripe.sessions[0].Metadata()
			assert.Equal(t, map[string]string{"eventId": "E1", "amount": "1500", "eventTitle": "Meetup", "uid": "U1"}, meta)

			metaJSON, err := json.Marshal(meta)
			require.NoError(t, err)
			body := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":%q,"object":"checkout.session","metadata":%s}}}`,
				resp.Result.SessionID, metaJSON))

			w := postWebhook(env, body, signedHeader(body, testWebhookSecret))
			require.Equal(t, http.StatusOK, w.Code)

			rec, ok := env.store.rsvp("E1", "U1")
			require.True(t, ok)
			assert.Equal(t, "U1", rec.UID)
			assert.Equal(t, domain.RSVPYes, rec.Response)
			assert.True(t, rec.Paid)
		})
	}
}

func TestUnpaidEventFlow(t *testing.T) {
	env := newTestEnv(t, service.PricingEvent, AcknowledgeRegardless)
	env.store.events["E2"] = &domain.Event{ID: "E2", Title: "Picnic", IsPaid: false}

	code, resp := callCheckout(t, env, bearer(t, "U1"), `{"data":{"eventId":"E2","amount":1500,"eventTitle":"Picnic"}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, StatusInvalidArgument, resp.Error.Status)

	assert.Empty(t, env.stripe.sessions)
	_, ok := env.store.rsvp("E2", "U1")
	assert.False(t, ok)
	assert.Zero(t, env.store.writes)
}
