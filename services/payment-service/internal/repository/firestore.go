package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
)

const (
	eventsCollection = "events"
	rsvpsCollection  = "rsvps"
)

type FirestoreRepo struct{ fs *firestore.Client }

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) EventByID(ctx context.Context, id string) (*domain.Event, error) {
	snap, err := r.fs.Collection(eventsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	var ev domain.Event
	if err := snap.DataTo(&ev); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", id, err)
	}
	ev.ID = snap.Ref.ID
	return &ev, nil
}

// UpsertReservation overwrites the whole document; the timestamp is assigned
// by Firestore.
func (r *FirestoreRepo) UpsertReservation(ctx context.Context, rec *domain.Reservation) error {
	doc := r.fs.Collection(eventsCollection).Doc(rec.EventID).Collection(rsvpsCollection).Doc(rec.UID)
	if _, err := doc.Set(ctx, rec); err != nil {
		return fmt.Errorf("set rsvp %s/%s: %w", rec.EventID, rec.UID, err)
	}
	return nil
}
