package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PredictionType distinguishes the paid pick from the openly published one
type PredictionType string

const (
	PredictionTypeVIP  PredictionType = "vip"
	PredictionTypeFree PredictionType = "free"
)

// PredictionStatus represents the lifecycle status of a published prediction
type PredictionStatus string

const (
	PredictionStatusPending PredictionStatus = "pending"
	PredictionStatusWon     PredictionStatus = "won"
	PredictionStatusLost    PredictionStatus = "lost"
	PredictionStatusExpired PredictionStatus = "expired"
)

// Prediction represents a published accumulator pick (a combination of matches)
type Prediction struct {
	ID                 uuid.UUID          `db:"id" json:"id" validate:"required,uuid4"`
	Type               PredictionType     `db:"prediction_type" json:"prediction_type" validate:"required,oneof=vip free"`
	TotalOdds          float64            `db:"total_odds" json:"total_odds" validate:"required,gt=1"`
	SuccessProbability float64            `db:"success_probability" json:"success_probability" validate:"required,gte=0,lte=1"`
	Status             PredictionStatus   `db:"status" json:"status" validate:"required,oneof=pending won lost expired"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	CompletedAt        *time.Time         `db:"completed_at" json:"completed_at"`
	Matches            []*PredictionMatch `db:"-" json:"matches"`
}

// IsPending checks whether the prediction is awaiting results
func (p *Prediction) IsPending() bool {
	return p.Status == PredictionStatusPending
}

// IsSettled checks whether every leg has a result
func (p *Prediction) IsSettled() bool {
	if len(p.Matches) == 0 {
		return false
	}
	for _, m := range p.Matches {
		if m.Result == nil {
			return false
		}
	}
	return true
}

// Settle derives the final status from the legs' results. Returns false while
// any leg is still unresolved.
func (p *Prediction) Settle(now time.Time) bool {
	if !p.IsSettled() {
		return false
	}
	status := PredictionStatusWon
	for _, m := range p.Matches {
		if *m.Result == MatchResultLost {
			status = PredictionStatusLost
			break
		}
	}
	p.Status = status
	p.CompletedAt = &now
	return true
}

// MatchResult is the outcome of a single leg
type MatchResult string

const (
	MatchResultWon  MatchResult = "won"
	MatchResultLost MatchResult = "lost"
)

// PredictionMatch is one leg of a prediction: a fixture with a chosen over-goals bet
type PredictionMatch struct {
	ID           uuid.UUID    `db:"id" json:"id" validate:"required,uuid4"`
	PredictionID uuid.UUID    `db:"prediction_id" json:"prediction_id" validate:"required,uuid4"`
	SourceID     *int64       `db:"source_id" json:"source_id"` // provider's fixture ID, nil for demo picks
	HomeTeam     string       `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam     string       `db:"away_team" json:"away_team" validate:"required"`
	League       string       `db:"league" json:"league" validate:"required"`
	KickoffTime  time.Time    `db:"kickoff_time" json:"kickoff_time" validate:"required"`
	BetLabel     string       `db:"bet_label" json:"bet_label" validate:"required"`
	Odds         float64      `db:"odds" json:"odds" validate:"required,gt=1"`
	Result       *MatchResult `db:"result" json:"result"`
	ActualGoals  *int         `db:"actual_goals" json:"actual_goals"`
}

// OverThreshold extracts the goal threshold from the bet label ("Over 2.5" -> 2.5)
func (m *PredictionMatch) OverThreshold() float64 {
	s := strings.TrimPrefix(m.BetLabel, "Over ")
	threshold, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.5
	}
	return threshold
}

// CheckResult settles the leg against the actual total goals
func (m *PredictionMatch) CheckResult(totalGoals int) MatchResult {
	result := MatchResultLost
	if float64(totalGoals) > m.OverThreshold() {
		result = MatchResultWon
	}
	m.ActualGoals = &totalGoals
	m.Result = &result
	return result
}

// Fixture returns a display name for the leg
func (m *PredictionMatch) Fixture() string {
	return fmt.Sprintf("%s vs %s", m.HomeTeam, m.AwayTeam)
}
