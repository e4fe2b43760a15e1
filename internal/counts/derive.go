// Package counts derives the per-status appointment counters a doctor's
// dashboard shows and keeps them current from the live appointment feed.
package counts

import (
	"time"

	"hospital-service/internal/models"
)

type Counts struct {
	Total         int `json:"total"`
	Scheduled     int `json:"scheduled"`
	InProgress    int `json:"inProgress"`
	Completed     int `json:"completed"`
	Cancelled     int `json:"cancelled"`
	NoShow        int `json:"noShow"`
	Today         int `json:"today"`
	Pending       int `json:"pending"`
	Notifications int `json:"notifications"`
}

// DayWindow returns [start of day, start of next day) for now, in now's location.
func DayWindow(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// IsToday reports whether the appointment date falls inside now's day.
// Appointments without a date are never today.
func IsToday(a models.Appointment, now time.Time) bool {
	if a.Date.IsZero() {
		return false
	}
	start, end := DayWindow(now)
	d := a.Date.In(now.Location())
	return !d.Before(start) && d.Before(end)
}

// Derive folds the whole list into fresh counters. Appointments with a status
// outside the known five are skipped entirely so Total stays equal to the sum
// of the per-status counters.
func Derive(list []models.Appointment, now time.Time) Counts {
	var c Counts

	for _, a := range list {
		today := IsToday(a, now)

		switch a.Status {
		case models.StatusScheduled:
			c.Scheduled++
			c.Pending++
			if today {
				c.Today++
				c.Notifications++
			}
		case models.StatusInProgress:
			c.InProgress++
			c.Pending++
			if today {
				c.Today++
			}
		case models.StatusCompleted:
			c.Completed++
		case models.StatusCancelled:
			c.Cancelled++
		case models.StatusNoShow:
			c.NoShow++
		default:
			continue
		}

		c.Total++
	}

	return c
}

// Today returns the appointments dated today, in list order.
func Today(list []models.Appointment, now time.Time) []models.Appointment {
	out := make([]models.Appointment, 0)
	for _, a := range list {
		if IsToday(a, now) {
			out = append(out, a)
		}
	}
	return out
}
