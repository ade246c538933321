package models

import (
	"time"

	"github.com/google/uuid"
)

// UserSession grants time-boxed VIP access after a completed payment.
// There is no account system: the token itself is the grant.
type UserSession struct {
	ID              uuid.UUID  `db:"id" json:"id" validate:"required,uuid4"`
	Token           string     `db:"session_token" json:"session_token" validate:"required"`
	VIPPredictionID *uuid.UUID `db:"vip_prediction_id" json:"vip_prediction_id"`
	AccessExpiresAt *time.Time `db:"access_expires_at" json:"access_expires_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// IsValid reports whether the session still grants access at the given time
func (s *UserSession) IsValid(now time.Time) bool {
	if s.AccessExpiresAt == nil {
		return false
	}
	return now.Before(*s.AccessExpiresAt)
}
