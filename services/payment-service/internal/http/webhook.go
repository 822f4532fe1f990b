package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v81"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Doetheman/community-platform-template/pkg/mq"
	"github.com/Doetheman/community-platform-template/pkg/obs"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
	stripecli "github.com/Doetheman/community-platform-template/services/payment-service/internal/stripe"
)

const maxBodyBytes = 1 << 20

// WriteFailurePolicy decides the reply to Stripe when the reservation write
// fails after a verified delivery.
type WriteFailurePolicy string

const (
	// AcknowledgeRegardless replies 200 and drops the update.
	AcknowledgeRegardless WriteFailurePolicy = "acknowledge"
	// FailForRedelivery replies 500 so Stripe retries the delivery.
	FailForRedelivery WriteFailurePolicy = "redeliver"
)

func ParseWriteFailurePolicy(s string) (WriteFailurePolicy, error) {
	switch p := WriteFailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case AcknowledgeRegardless, FailForRedelivery:
		return p, nil
	case "":
		return AcknowledgeRegardless, nil
	default:
		return "", fmt.Errorf("unknown webhook write failure policy %q", s)
	}
}

type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

type PaidMarker interface {
	MarkPaid(ctx context.Context, eventID, uid string) (*domain.Reservation, error)
}

type WebhookServer struct {
	verifier     EventVerifier
	reservations PaidMarker
	publisher    mq.JSONPublisher
	policy       WriteFailurePolicy
	metrics      *obs.Metrics
	RoutingPaid  string
}

// NewWebhookServer wires the receiver. publisher may be nil.
func NewWebhookServer(v EventVerifier, r PaidMarker, pub mq.JSONPublisher, policy WriteFailurePolicy, m *obs.Metrics) *WebhookServer {
	if policy == "" {
		policy = AcknowledgeRegardless
	}
	return &WebhookServer{
		verifier:     v,
		reservations: r,
		publisher:    pub,
		policy:       policy,
		metrics:      m,
		RoutingPaid:  "reservation.paid",
	}
}

// ReservationPaid is published after a paid RSVP has been stored.
type ReservationPaid struct {
	Event      string `json:"event"`       // "reservation.paid"
	Version    int    `json:"version"`     // 1
	OccurredAt string `json:"occurred_at"` // RFC3339
	Data       struct {
		EventID   string `json:"event_id"`
		UID       string `json:"uid"`
		SessionID string `json:"session_id"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

func (s *WebhookServer) Handler(c *gin.Context) {
	ctx := c.Request.Context()
	log := zerolog.Ctx(ctx)

	body, err := readBody(c.Request, maxBodyBytes)
	if err != nil {
		s.count("unknown", "bad_body")
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	ev, err := s.verifier.Verify(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("[webhook] signature verification failed")
		s.count("unknown", "bad_signature")
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	ctx, span := otel.Tracer("payment-service").Start(ctx, "webhook.Handle")
	defer span.End()
	span.SetAttributes(attribute.String("stripe.event_type", string(ev.Type)), attribute.String("stripe.event_id", ev.ID))

	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		if !s.handleCompleted(ctx, log, ev) {
			c.JSON(http.StatusInternalServerError, gin.H{"received": false})
			return
		}
	default:
		log.Debug().Str("type", string(ev.Type)).Msg("[webhook] ignored event type")
		s.count(string(ev.Type), "ignored")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleCompleted reports false only when the delivery should be retried.
func (s *WebhookServer) handleCompleted(ctx context.Context, log *zerolog.Logger, ev stripe.Event) bool {
	typ := string(ev.Type)

	cs, err := stripecli.CompletedSession(ev)
	if err != nil {
		log.Error().Err(err).Str("stripe_event", ev.ID).Msg("[webhook] decode checkout session")
		s.count(typ, "bad_payload")
		return true
	}
	eventID := cs.Metadata[stripecli.MetaEventID]
	uid := cs.Metadata[stripecli.MetaUID]
	if eventID == "" || uid == "" {
		log.Warn().Str("session", cs.ID).Msg("[webhook] checkout session without eventId/uid metadata")
		s.count(typ, "missing_metadata")
		return true
	}

	if _, err := s.reservations.MarkPaid(ctx, eventID, uid); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Str("uid", uid).Str("session", cs.ID).
			Str("policy", string(s.policy)).Msg("[webhook] failed to record paid RSVP")
		s.count(typ, "write_failed")
		return s.policy != FailForRedelivery
	}
	log.Info().Str("event_id", eventID).Str("uid", uid).Msg("[webhook] RSVP marked paid")
	s.count(typ, "recorded")

	s.publishPaid(ctx, log, eventID, uid, cs)
	return true
}

func (s *WebhookServer) publishPaid(ctx context.Context, log *zerolog.Logger, eventID, uid string, cs *stripe.CheckoutSession) {
	if s.publisher == nil {
		return
	}
	evt := ReservationPaid{
		Event:      s.RoutingPaid,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	evt.Data.EventID = eventID
	evt.Data.UID = uid
	evt.Data.SessionID = cs.ID
	evt.Data.Amount = cs.AmountTotal
	evt.Data.Currency = string(cs.Currency)
	if err := s.publisher.PublishJSON(ctx, s.RoutingPaid, evt); err != nil {
		log.Error().Err(err).Msg("[webhook] publish reservation.paid")
	}
}

func (s *WebhookServer) count(typ, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.WebhookEvents.WithLabelValues(typ, outcome).Inc()
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, errors.New("failed to read body")
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
