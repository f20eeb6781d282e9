package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentType distinguishes money already received from money expected.
type PaymentType string

const (
	PaymentReceived PaymentType = "received"
	PaymentExpected PaymentType = "pending"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentReceived || t == PaymentExpected
}

// PaymentStatus is the processing status of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusOverdue   PaymentStatus = "overdue"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusOverdue:
		return true
	}
	return false
}

// Payment is a client payment attached to an event.
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	EventID       uuid.UUID     `json:"event_id"`
	Amount        float64       `json:"amount"`
	PaymentType   PaymentType   `json:"payment_type"`
	PaymentDate   time.Time     `json:"payment_date"`
	PaymentMethod string        `json:"payment_method"`
	ClientName    string        `json:"client_name"`
	Status        PaymentStatus `json:"status"`
	Notes         string        `json:"notes"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
