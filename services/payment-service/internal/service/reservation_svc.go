package service

import (
	"context"
	"errors"

	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
)

type ReservationWriter interface {
	UpsertReservation(ctx context.Context, rec *domain.Reservation) error
}

type ReservationSvc struct {
	repo ReservationWriter
}

func NewReservationSvc(repo ReservationWriter) *ReservationSvc {
	return &ReservationSvc{repo: repo}
}

// MarkPaid records a "yes" RSVP with paid=true for (eventID, uid). Repeated
// calls overwrite the record with the same state. It must only be reached
// from a signature-verified payment event.
func (s *ReservationSvc) MarkPaid(ctx context.Context, eventID, uid string) (*domain.Reservation, error) {
	if eventID == "" || uid == "" {
		return nil, errors.New("eventId and uid are required")
	}
	rec := &domain.Reservation{
		EventID:  eventID,
		UID:      uid,
		Response: domain.RSVPYes,
		Paid:     true,
	}
	if err := s.repo.UpsertReservation(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
