package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Doetheman/community-platform-template/services/payment-service/internal/domain"
)

// PostgresRepo mirrors the document layout in two tables: events and
// reservations keyed by (event_id, uid).
type PostgresRepo struct{ db *gorm.DB }

func NewPostgresRepo(db *gorm.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Event{}, &domain.Reservation{})
}

func (r *PostgresRepo) EventByID(ctx context.Context, id string) (*domain.Event, error) {
	var ev domain.Event
	err := r.db.WithContext(ctx).First(&ev, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &ev, nil
}

// UpsertReservation inserts or fully overwrites the (event_id, uid) row.
func (r *PostgresRepo) UpsertReservation(ctx context.Context, rec *domain.Reservation) error {
	row := *rec
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"response", "paid", "timestamp"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert rsvp %s/%s: %w", rec.EventID, rec.UID, err)
	}
	return nil
}
