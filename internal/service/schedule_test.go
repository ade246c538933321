package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kampala(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Kampala")
	require.NoError(t, err)
	return loc
}

func TestNextUpdateTimeMorning(t *testing.T) {
	loc := kampala(t)
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, loc)

	next := NextUpdateTime(now, loc)

	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, loc), next)
}

func TestNextUpdateTimeAfternoonRollsToMidnight(t *testing.T) {
	loc := kampala(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	next := NextUpdateTime(now, loc)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, loc), next)
}

func TestNextUpdateTimeExactlyAtNoon(t *testing.T) {
	loc := kampala(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)

	// the refresh instant itself belongs to the new cycle
	next := NextUpdateTime(now, loc)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, loc), next)
}

func TestNextUpdateTimeConvertsFromUTC(t *testing.T) {
	loc := kampala(t)
	// 22:00 UTC is 01:00 EAT the next day, so the next refresh is noon
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)

	next := NextUpdateTime(now, loc)

	assert.Equal(t, time.Date(2026, 3, 11, 12, 0, 0, 0, loc), next)
}

func TestTimeUntilUpdate(t *testing.T) {
	loc := kampala(t)
	now := time.Date(2026, 3, 10, 10, 15, 30, 0, loc)

	countdown := TimeUntilUpdate(now, loc)

	assert.Equal(t, 1, countdown.Hours)
	assert.Equal(t, 44, countdown.Minutes)
	assert.Equal(t, 30, countdown.Seconds)
	assert.Equal(t, 1*3600+44*60+30, countdown.TotalSeconds)
	assert.Equal(t, "12:00 PM", countdown.NextUpdateAt)
}

func TestTimeUntilUpdateMidnightLabel(t *testing.T) {
	loc := kampala(t)
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, loc)

	countdown := TimeUntilUpdate(now, loc)

	assert.Equal(t, "12:00 AM", countdown.NextUpdateAt)
}
