package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Doetheman/community-platform-template/pkg/auth"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
	stripecli "github.com/Doetheman/community-platform-template/services/payment-service/internal/stripe"
)

// PricingPolicy decides where the charged amount and product name come from.
type PricingPolicy string

const (
	// PricingEvent charges the price stored on the event record.
	PricingEvent PricingPolicy = "event"
	// PricingCaller charges what the client sent.
	PricingCaller PricingPolicy = "caller"
)

func ParsePricingPolicy(s string) (PricingPolicy, error) {
	switch p := PricingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PricingEvent, PricingCaller:
		return p, nil
	case "":
		return PricingEvent, nil
	default:
		return "", fmt.Errorf("unknown pricing policy %q", s)
	}
}

type EventReader interface {
	EventByID(ctx context.Context, id string) (*domain.Event, error)
}

type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req stripecli.SessionRequest) (*stripecli.Session, error)
}

type CheckoutConfig struct {
	DeepLinkDomain string
	Currency       string
	Pricing        PricingPolicy
}

type CheckoutSvc struct {
	events   EventReader
	sessions SessionCreator
	cfg      CheckoutConfig
}

func NewCheckoutSvc(events EventReader, sessions SessionCreator, cfg CheckoutConfig) *CheckoutSvc {
	if cfg.Pricing == "" {
		cfg.Pricing = PricingEvent
	}
	cfg.DeepLinkDomain = strings.TrimRight(cfg.DeepLinkDomain, "/")
	return &CheckoutSvc{events: events, sessions: sessions, cfg: cfg}
}

type CreateSessionInput struct {
	EventID    string
	Amount     int64
	EventTitle string
}

type CreateSessionOutput struct {
	SessionID  string `json:"sessionId"`
	SessionURL string `json:"sessionUrl"`
}

// CreateSession validates the event and asks Stripe for a checkout session.
// The caller must carry a verified identity in ctx.
func (s *CheckoutSvc) CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionOutput, error) {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return nil, newError(ErrUnauthenticated, "User must be authenticated")
	}

	ctx, span := otel.Tracer("payment-service").Start(ctx, "checkout.CreateSession")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", in.EventID))

	out, err := s.createSession(ctx, caller, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (s *CheckoutSvc) createSession(ctx context.Context, caller auth.Identity, in CreateSessionInput) (*CreateSessionOutput, error) {
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" || strings.Contains(eventID, "/") {
		return nil, newError(ErrInvalidArgument, "A valid eventId is required")
	}

	ev, err := s.events.EventByID(ctx, eventID)
	if errors.Is(err, domain.ErrEventNotFound) {
		return nil, newError(ErrNotFound, "Event not found")
	}
	if err != nil {
		return nil, err
	}
	if !ev.IsPaid {
		return nil, newError(ErrInvalidArgument, "This event is not a paid event")
	}

	amount, title, err := s.price(ev, in)
	if err != nil {
		return nil, err
	}
	currency := s.cfg.Currency
	if ev.Currency != "" && s.cfg.Pricing == PricingEvent {
		currency = ev.Currency
	}

	sess, err := s.sessions.CreateCheckoutSession(ctx, stripecli.SessionRequest{
		EventID:    eventID,
		EventTitle: title,
		UID:        caller.UID,
		Amount:     amount,
		Currency:   currency,
		SuccessURL: s.successURL(eventID),
		CancelURL:  s.cancelURL(eventID),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CreateSessionOutput{SessionID: sess.ID, SessionURL: sess.URL}, nil
}

func (s *CheckoutSvc) price(ev *domain.Event, in CreateSessionInput) (int64, string, error) {
	switch s.cfg.Pricing {
	case PricingCaller:
		if in.Amount <= 0 {
			return 0, "", newError(ErrInvalidArgument, "amount must be a positive integer")
		}
		title := strings.TrimSpace(in.EventTitle)
		if title == "" {
			title = ev.Title
		}
		return in.Amount, title, nil
	default:
		if ev.Price <= 0 {
			return 0, "", newError(ErrInvalidArgument, "This event has no price configured")
		}
		return ev.Price, ev.Title, nil
	}
}

// Stripe substitutes {CHECKOUT_SESSION_ID} itself, so it must stay unescaped.
func (s *CheckoutSvc) successURL(eventID string) string {
	return s.cfg.DeepLinkDomain + "/payment-success?session_id={CHECKOUT_SESSION_ID}&eventId=" + url.QueryEscape(eventID)
}

func (s *CheckoutSvc) cancelURL(eventID string) string {
	return s.cfg.DeepLinkDomain + "/payment-cancel?eventId=" + url.QueryEscape(eventID)
}
