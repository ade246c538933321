package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/metrics"
)

const footballDataSourceName = "football_data"

// Competition codes available on the football-data.org free tier
var freeTierCompetitions = []struct {
	Code string
	Name string
}{
	{"PL", "Premier League"},
	{"BL1", "Bundesliga"},
	{"PD", "La Liga"},
	{"SA", "Serie A"},
	{"FL1", "Ligue 1"},
	{"CL", "Champions League"},
	{"EC", "European Championship"},
}

// FootballDataClient implements MatchSource for the football-data.org v4 API
type FootballDataClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logrus.Logger
	now        func() time.Time
}

// NewFootballDataClient creates a new football-data.org API client
func NewFootballDataClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *FootballDataClient {
	if baseURL == "" {
		baseURL = "https://api.football-data.org/v4"
	}
	return &FootballDataClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
		now:        time.Now,
	}
}

// Name returns the name of the data source
func (c *FootballDataClient) Name() string {
	return footballDataSourceName
}

type fdTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type fdScorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type fdScore struct {
	FullTime fdScorePair `json:"fullTime"`
}

type fdMatch struct {
	ID       int64   `json:"id"`
	UTCDate  string  `json:"utcDate"`
	Status   string  `json:"status"`
	HomeTeam fdTeam  `json:"homeTeam"`
	AwayTeam fdTeam  `json:"awayTeam"`
	Score    fdScore `json:"score"`
}

type fdMatchesResponse struct {
	Matches []fdMatch `json:"matches"`
}

// FetchUpcoming retrieves scheduled matches across all free-tier competitions
// from today up to lookaheadDays ahead
func (c *FootballDataClient) FetchUpcoming(ctx context.Context, lookaheadDays int) ([]MatchCandidate, error) {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	dateFrom := c.now().UTC().Format("2006-01-02")
	dateTo := c.now().UTC().AddDate(0, 0, lookaheadDays).Format("2006-01-02")

	var candidates []MatchCandidate
	for _, comp := range freeTierCompetitions {
		url := fmt.Sprintf("%s/competitions/%s/matches?dateFrom=%s&dateTo=%s&status=SCHEDULED",
			c.baseURL, comp.Code, dateFrom, dateTo)

		var out fdMatchesResponse
		if err := c.getJSON(ctx, url, &out); err != nil {
			// One competition failing must not cost the rest of the window
			c.logger.WithError(err).WithField("competition", comp.Code).Warn("failed to fetch competition matches")
			continue
		}

		for _, m := range out.Matches {
			kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
			if err != nil {
				c.logger.WithField("match_id", m.ID).Warn("skipping match with unparseable kickoff time")
				continue
			}
			candidates = append(candidates, MatchCandidate{
				SourceID:    m.ID,
				HomeTeamID:  m.HomeTeam.ID,
				AwayTeamID:  m.AwayTeam.ID,
				HomeTeam:    m.HomeTeam.Name,
				AwayTeam:    m.AwayTeam.Name,
				Competition: comp.Name,
				KickoffTime: kickoff,
			})
		}
	}

	return candidates, nil
}

// FetchRecentForm retrieves up to limit finished matches for a team and maps
// each to the team's own perspective
func (c *FootballDataClient) FetchRecentForm(ctx context.Context, teamID int64, limit int) ([]FormSample, error) {
	url := fmt.Sprintf("%s/teams/%d/matches?status=FINISHED&limit=%d", c.baseURL, teamID, limit)

	var out fdMatchesResponse
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}

	samples := make([]FormSample, 0, limit)
	for _, m := range out.Matches {
		if len(samples) >= limit {
			break
		}
		homeGoals := valueOrZero(m.Score.FullTime.Home)
		awayGoals := valueOrZero(m.Score.FullTime.Away)
		isHome := m.HomeTeam.ID == teamID

		goalsFor, goalsAgainst := homeGoals, awayGoals
		if !isHome {
			goalsFor, goalsAgainst = awayGoals, homeGoals
		}

		result := "D"
		switch {
		case goalsFor > goalsAgainst:
			result = "W"
		case goalsFor < goalsAgainst:
			result = "L"
		}

		samples = append(samples, FormSample{
			SourceID:     m.ID,
			GoalsFor:     goalsFor,
			GoalsAgainst: goalsAgainst,
			TotalGoals:   homeGoals + awayGoals,
			IsHome:       isHome,
			Result:       result,
		})
	}

	return samples, nil
}

type fdAggregateSide struct {
	Wins  int `json:"wins"`
	Draws int `json:"draws"`
}

type fdHead2HeadResponse struct {
	Aggregates struct {
		HomeTeam fdAggregateSide `json:"homeTeam"`
		AwayTeam fdAggregateSide `json:"awayTeam"`
	} `json:"aggregates"`
	Matches []fdMatch `json:"matches"`
}

// FetchHeadToHead retrieves head-to-head aggregates for a fixture
func (c *FootballDataClient) FetchHeadToHead(ctx context.Context, matchID int64) (*HeadToHead, error) {
	url := fmt.Sprintf("%s/matches/%d/head2head", c.baseURL, matchID)

	var out fdHead2HeadResponse
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}

	h2h := &HeadToHead{
		AvgGoals:   2.5,
		MatchCount: len(out.Matches),
		HomeWins:   out.Aggregates.HomeTeam.Wins,
		AwayWins:   out.Aggregates.AwayTeam.Wins,
		Draws:      out.Aggregates.HomeTeam.Draws,
	}

	if len(out.Matches) > 0 {
		total := 0
		for _, m := range out.Matches {
			total += valueOrZero(m.Score.FullTime.Home) + valueOrZero(m.Score.FullTime.Away)
		}
		h2h.AvgGoals = float64(total) / float64(len(out.Matches))
	}

	return h2h, nil
}

// FetchResult retrieves the final score of a match, or nil while it is not finished
func (c *FootballDataClient) FetchResult(ctx context.Context, matchID int64) (*MatchScore, error) {
	url := fmt.Sprintf("%s/matches/%d", c.baseURL, matchID)

	var m fdMatch
	if err := c.getJSON(ctx, url, &m); err != nil {
		return nil, err
	}

	if m.Status != "FINISHED" {
		return nil, nil
	}

	homeGoals := valueOrZero(m.Score.FullTime.Home)
	awayGoals := valueOrZero(m.Score.FullTime.Away)
	return &MatchScore{
		SourceID:   matchID,
		HomeGoals:  homeGoals,
		AwayGoals:  awayGoals,
		TotalGoals: homeGoals + awayGoals,
	}, nil
}

type fdStandingsResponse struct {
	Standings []struct {
		Type  string `json:"type"`
		Table []struct {
			Position     int    `json:"position"`
			Team         fdTeam `json:"team"`
			PlayedGames  int    `json:"playedGames"`
			Points       int    `json:"points"`
			GoalsFor     int    `json:"goalsFor"`
			GoalsAgainst int    `json:"goalsAgainst"`
			GoalDiff     int    `json:"goalDifference"`
		} `json:"table"`
	} `json:"standings"`
}

// FetchStandings retrieves the TOTAL league table for a competition
func (c *FootballDataClient) FetchStandings(ctx context.Context, competitionCode string) ([]StandingEntry, error) {
	url := fmt.Sprintf("%s/competitions/%s/standings", c.baseURL, competitionCode)

	var out fdStandingsResponse
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}

	var entries []StandingEntry
	for _, standing := range out.Standings {
		if standing.Type != "TOTAL" {
			continue
		}
		for _, row := range standing.Table {
			entries = append(entries, StandingEntry{
				TeamID:         row.Team.ID,
				TeamName:       row.Team.Name,
				Position:       row.Position,
				Points:         row.Points,
				Played:         row.PlayedGames,
				GoalsFor:       row.GoalsFor,
				GoalsAgainst:   row.GoalsAgainst,
				GoalDifference: row.GoalDiff,
			})
		}
	}

	return entries, nil
}

func (c *FootballDataClient) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewDataSourceError(footballDataSourceName, ErrCodeNetworkError, "failed to create request", err)
	}

	req.Header.Set("X-Auth-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		metrics.DataSourceRequestsTotal.WithLabelValues("error").Inc()
		return NewDataSourceError(footballDataSourceName, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.DataSourceRequestsTotal.WithLabelValues("auth_failed").Inc()
		return NewDataSourceError(footballDataSourceName, ErrCodeAuthenticationFailed, "invalid API key", ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.DataSourceRequestsTotal.WithLabelValues("rate_limited").Inc()
		return NewDataSourceError(footballDataSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	case resp.StatusCode == http.StatusNotFound:
		metrics.DataSourceRequestsTotal.WithLabelValues("not_found").Inc()
		return NewDataSourceError(footballDataSourceName, ErrCodeNotFound, "resource not found", ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		metrics.DataSourceRequestsTotal.WithLabelValues("server_error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(footballDataSourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		metrics.DataSourceRequestsTotal.WithLabelValues("invalid_data").Inc()
		return NewDataSourceError(footballDataSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}

	metrics.DataSourceRequestsTotal.WithLabelValues("success").Inc()
	return nil
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
