package httpx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/Doetheman/community-platform-template/pkg/auth"
	"github.com/Doetheman/community-platform-template/pkg/obs"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/service"
	stripecli "github.com/Doetheman/community-platform-template/services/payment-service/internal/stripe"
)

const (
	testWebhookSecret = "whsec_test"
	testJWTSecret     = "jwt-test-secret"
)

func init() { gin.SetMode(gin.TestMode) }

// memStore stands in for the document store.
type memStore struct {
	mu        sync.Mutex
	events    map[string]*domain.Event
	rsvps     map[string]domain.Reservation
	writes    int
	eventRead int
	writeErr  error
}

func newMemStore() *memStore {
	return &memStore{events: map[string]*domain.Event{}, rsvps: map[string]domain.Reservation{}}
}

func (m *memStore) EventByID(_ context.Context, id string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventRead++
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) UpsertReservation(_ context.Context, rec *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	row := *rec
	row.Timestamp = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	m.rsvps[rec.EventID+"/"+rec.UID] = row
	return nil
}

func (m *memStore) rsvp(eventID, uid string) (domain.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rsvps[eventID+"/"+uid]
	return r, ok
}

// fakeStripe creates sessions locally and remembers their metadata so tests
// can build the matching webhook.
type fakeStripe struct {
	mu       sync.Mutex
	sessions []stripecli.SessionRequest
	err      error
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, req stripecli.SessionRequest) (*stripecli.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sessions = append(f.sessions, req)
	id := "cs_test_" + req.EventID
	return &stripecli.Session{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id, Metadata: req.Metadata()}, nil
}

type recordingPublisher struct {
	keys []string
	msgs []any
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, v)
	return p.err
}

type testEnv struct {
	store  *memStore
	stripe *fakeStripe
	pub    *recordingPublisher
	router *gin.Engine
}

func newTestEnv(t *testing.T, pricing service.PricingPolicy, policy WriteFailurePolicy) *testEnv {
	t.Helper()
	store := newMemStore()
	fs := &fakeStripe{}
	pub := &recordingPublisher{}
	m := obs.NewMetrics("test")

	verifier, err := auth.NewJWTVerifier(testJWTSecret, "")
	require.NoError(t, err)

	checkout := service.NewCheckoutSvc(store, fs, service.CheckoutConfig{
		DeepLinkDomain: "https://community.example.app",
		Currency:       "usd",
		Pricing:        pricing,
	})
	router := NewRouter(RouterDeps{
		Logger:   zerolog.Nop(),
		Verifier: verifier,
		Callable: NewCallableServer(checkout, m),
		Webhook:  NewWebhookServer(stripecli.NewWebhookVerifier(testWebhookSecret), service.NewReservationSvc(store), pub, policy, m),
		Metrics:  m,
	})
	return &testEnv{store: store, stripe: fs, pub: pub, router: router}
}

func bearer(t *testing.T, uid string) string {
	t.Helper()
	tok, err := auth.CreateAccessToken(testJWTSecret, "", uid, "", time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func signedHeader(body []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

var errBoom = errors.New("firestore unavailable")
