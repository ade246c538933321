package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the state of a mobile-money collection
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records a mobile-money purchase of VIP access
type Payment struct {
	ID            uuid.UUID     `db:"id" json:"id" validate:"required,uuid4"`
	PredictionID  uuid.UUID     `db:"prediction_id" json:"prediction_id" validate:"required,uuid4"`
	Amount        float64       `db:"amount" json:"amount" validate:"required,gt=0"`
	Currency      string        `db:"currency" json:"currency" validate:"required,len=3"`
	TransactionID *string       `db:"transaction_id" json:"transaction_id"`
	Status        PaymentStatus `db:"payment_status" json:"payment_status" validate:"required,oneof=pending completed failed"`
	PhoneNumber   *string       `db:"phone_number" json:"-"`
	PaidAt        time.Time     `db:"paid_at" json:"paid_at"`
}

// IsCompleted checks whether the collection settled successfully
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
