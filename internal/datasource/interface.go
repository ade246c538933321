package datasource

import (
	"context"
	"errors"
	"time"
)

// MatchSource defines the interface for fetching football data from external providers
type MatchSource interface {
	// FetchUpcoming retrieves scheduled matches from today up to lookaheadDays ahead
	FetchUpcoming(ctx context.Context, lookaheadDays int) ([]MatchCandidate, error)

	// FetchRecentForm retrieves up to limit finished matches for a team, newest first
	FetchRecentForm(ctx context.Context, teamID int64, limit int) ([]FormSample, error)

	// FetchHeadToHead retrieves head-to-head aggregates for a fixture
	FetchHeadToHead(ctx context.Context, matchID int64) (*HeadToHead, error)

	// FetchResult retrieves the final score of a match, or nil if not finished
	FetchResult(ctx context.Context, matchID int64) (*MatchScore, error)

	// FetchStandings retrieves the league table for a competition. Reserved
	// for the league position factor, which currently stays at zero.
	FetchStandings(ctx context.Context, competitionCode string) ([]StandingEntry, error)

	// Name returns the name of the data source
	Name() string
}

// MatchCandidate represents an upcoming fixture from any data source
type MatchCandidate struct {
	SourceID    int64     `json:"source_id"`
	HomeTeamID  int64     `json:"home_team_id"`
	AwayTeamID  int64     `json:"away_team_id"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	Competition string    `json:"competition"`
	KickoffTime time.Time `json:"kickoff_time"` // UTC
}

// FormSample is one recent result from a team's perspective
type FormSample struct {
	SourceID     int64  `json:"source_id"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	TotalGoals   int    `json:"total_goals"`
	IsHome       bool   `json:"is_home"`
	Result       string `json:"result"` // W, D or L
}

// HeadToHead aggregates previous meetings between two teams
type HeadToHead struct {
	AvgGoals   float64 `json:"avg_goals"`
	MatchCount int     `json:"match_count"`
	HomeWins   int     `json:"home_wins"`
	AwayWins   int     `json:"away_wins"`
	Draws      int     `json:"draws"`
}

// MatchScore is the full-time score of a finished match
type MatchScore struct {
	SourceID   int64 `json:"source_id"`
	HomeGoals  int   `json:"home_goals"`
	AwayGoals  int   `json:"away_goals"`
	TotalGoals int   `json:"total_goals"`
}

// StandingEntry is one row of a league table
type StandingEntry struct {
	TeamID         int64  `json:"team_id"`
	TeamName       string `json:"team_name"`
	Position       int    `json:"position"`
	Points         int    `json:"points"`
	Played         int    `json:"played"`
	GoalsFor       int    `json:"goals_for"`
	GoalsAgainst   int    `json:"goals_against"`
	GoalDifference int    `json:"goal_difference"`
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// Sentinel errors
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
