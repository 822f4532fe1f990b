// Package dispatch turns a newly created feed post into a push notification
// for subscribed users.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Doetheman/community-platform-template/pkg/obs"
	"github.com/Doetheman/community-platform-template/services/notification-service/internal/domain"
	"github.com/Doetheman/community-platform-template/services/notification-service/internal/notifier"
)

const (
	Title        = "New Post in the Community!"
	previewRunes = 50
)

// RecipientPolicy decides which subscribed users receive a post notification.
type RecipientPolicy string

const (
	// RecipientsNone sends to nobody.
	RecipientsNone RecipientPolicy = "none"
	// RecipientsSubscribers sends to every subscriber with a token except the author.
	RecipientsSubscribers RecipientPolicy = "subscribers"
)

func ParseRecipientPolicy(s string) (RecipientPolicy, error) {
	switch p := RecipientPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RecipientsNone, RecipientsSubscribers:
		return p, nil
	case "":
		return RecipientsNone, nil
	default:
		return "", fmt.Errorf("unknown recipient policy %q", s)
	}
}

type UserSource interface {
	SubscribedUsers(ctx context.Context) ([]domain.User, error)
}

type Dispatcher struct {
	users   UserSource
	gateway notifier.PushGateway
	policy  RecipientPolicy
	metrics *obs.Metrics
	log     zerolog.Logger
}

func New(users UserSource, gateway notifier.PushGateway, policy RecipientPolicy, m *obs.Metrics, log zerolog.Logger) *Dispatcher {
	if policy == "" {
		policy = RecipientsNone
	}
	return &Dispatcher{users: users, gateway: gateway, policy: policy, metrics: m, log: log}
}

// OnPostCreated notifies the recipients selected by the policy and returns
// the gateway's success count. Store and gateway errors are returned as is.
func (d *Dispatcher) OnPostCreated(ctx context.Context, post domain.FeedPost) (int, error) {
	ctx, span := otel.Tracer("notification-service").Start(ctx, "dispatch.OnPostCreated")
	defer span.End()
	span.SetAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("recipient.policy", string(d.policy)),
	)

	sent, err := d.dispatch(ctx, post)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return sent, err
}

func (d *Dispatcher) dispatch(ctx context.Context, post domain.FeedPost) (int, error) {
	users, err := d.users.SubscribedUsers(ctx)
	if err != nil {
		return 0, err
	}

	tokens := Recipients(d.policy, post.AuthorID, users)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("recipients", len(tokens)))
	if len(tokens) == 0 {
		d.log.Debug().Str("post_id", post.ID).Int("subscribers", len(users)).Msg("[notify] no recipients")
		d.count("skipped", 1)
		return 0, nil
	}

	sent, err := d.gateway.SendMulticast(ctx, tokens, Notification(post))
	d.count("sent", sent)
	d.count("failed", len(tokens)-sent)
	if err != nil {
		return sent, err
	}
	d.log.Info().Str("post_id", post.ID).Int("recipients", len(tokens)).Int("success", sent).
		Msg("[notify] notifications sent")
	return sent, nil
}

// Recipients builds the token set for a post under the given policy.
func Recipients(policy RecipientPolicy, authorID string, users []domain.User) []string {
	if policy != RecipientsSubscribers {
		return nil
	}
	seen := make(map[string]struct{}, len(users))
	var tokens []string
	for _, u := range users {
		if !u.NotificationsEnabled || u.UID == authorID || u.PushToken == "" {
			continue
		}
		if _, dup := seen[u.PushToken]; dup {
			continue
		}
		seen[u.PushToken] = struct{}{}
		tokens = append(tokens, u.PushToken)
	}
	return tokens
}

func Notification(post domain.FeedPost) notifier.Message {
	return notifier.Message{Title: Title, Body: Preview(post.Content)}
}

// Preview keeps the first 50 runes of content and appends an ellipsis.
func Preview(content string) string {
	r := []rune(content)
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r) + "..."
}

func (d *Dispatcher) count(outcome string, n int) {
	if d.metrics == nil || n <= 0 {
		return
	}
	d.metrics.Notifications.WithLabelValues(outcome).Add(float64(n))
}
