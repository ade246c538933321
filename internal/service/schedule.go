// Package service orchestrates the prediction pipeline, results settlement
// and VIP access lifecycle on top of the repositories and external clients.
package service

import (
	"fmt"
	"time"
)

// updateHours are the local hours at which predictions refresh
var updateHours = []int{0, 12}

// Countdown describes the time remaining until the next prediction refresh
type Countdown struct {
	Hours        int       `json:"hours"`
	Minutes      int       `json:"minutes"`
	Seconds      int       `json:"seconds"`
	TotalSeconds int       `json:"total_seconds"`
	NextUpdate   time.Time `json:"next_update"`
	NextUpdateAt string    `json:"next_update_at"`
}

// NextUpdateTime returns the next refresh instant strictly after now,
// evaluated on the 00:00/12:00 grid in the given location
func NextUpdateTime(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)

	for _, hour := range updateHours {
		candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
		if candidate.After(local) {
			return candidate
		}
	}

	tomorrow := local.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), updateHours[0], 0, 0, 0, loc)
}

// TimeUntilUpdate returns the countdown to the next refresh
func TimeUntilUpdate(now time.Time, loc *time.Location) Countdown {
	next := NextUpdateTime(now, loc)
	total := int(next.Sub(now.In(loc)).Seconds())

	return Countdown{
		Hours:        total / 3600,
		Minutes:      (total % 3600) / 60,
		Seconds:      total % 60,
		TotalSeconds: total,
		NextUpdate:   next,
		NextUpdateAt: fmt.Sprintf("%d:%02d %s", hour12(next.Hour()), next.Minute(), meridiem(next.Hour())),
	}
}

func hour12(hour int) int {
	h := hour % 12
	if h == 0 {
		return 12
	}
	return h
}

func meridiem(hour int) string {
	if hour < 12 {
		return "AM"
	}
	return "PM"
}
