package domain

import (
	"errors"
	"time"
)

var ErrEventNotFound = errors.New("event not found")

// Event is stored at events/{eventId}. Price is in the smallest currency unit.
type Event struct {
	ID       string `firestore:"-" gorm:"primaryKey" json:"id"`
	Title    string `firestore:"title" json:"title"`
	IsPaid   bool   `firestore:"isPaid" json:"isPaid"`
	Price    int64  `firestore:"price,omitempty" json:"price,omitempty"`
	Currency string `firestore:"currency,omitempty" json:"currency,omitempty"`
}

type RSVPResponse string

const (
	RSVPYes   RSVPResponse = "yes"
	RSVPNo    RSVPResponse = "no"
	RSVPMaybe RSVPResponse = "maybe"
)

// Reservation lives at events/{eventId}/rsvps/{uid}. A zero Timestamp is
// filled in by the store.
type Reservation struct {
	EventID   string       `firestore:"-" gorm:"primaryKey" json:"eventId"`
	UID       string       `firestore:"uid" gorm:"primaryKey" json:"uid"`
	Response  RSVPResponse `firestore:"response" json:"response"`
	Paid      bool         `firestore:"paid" json:"paid"`
	Timestamp time.Time    `firestore:"timestamp,serverTimestamp" gorm:"column:timestamp" json:"timestamp"`
}

func (Reservation) TableName() string { return "reservations" }
