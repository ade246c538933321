package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeRate is a base->target multiplier, one row per target currency,
// refreshed in place by the daily rates job
type ExchangeRate struct {
	ID             uuid.UUID `db:"id" json:"-"`
	BaseCurrency   string    `db:"base_currency" json:"base" validate:"required,len=3"`
	TargetCurrency string    `db:"target_currency" json:"target" validate:"required,len=3"`
	Rate           float64   `db:"rate" json:"rate" validate:"required,gt=0"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
