package slots

import (
	"time"

	"hospital-service/internal/models"
)

// Recalculate returns a copy of list with capacity defaults applied and
// IsAvailable recomputed from the counts. Applying it twice changes nothing.
func Recalculate(list []models.TimeSlot) []models.TimeSlot {
	out := make([]models.TimeSlot, len(list))

	for i, slot := range list {
		if slot.MaxPatients <= 0 {
			slot.MaxPatients = 1
		}
		if slot.BookedPatients < 0 {
			slot.BookedPatients = 0
		}
		slot.IsAvailable = slot.BookedPatients < slot.MaxPatients
		out[i] = slot
	}

	return out
}

// IsPast reports whether the slot starts before now. Slots without a date or
// start time never count as past; an unreadable start time on today's date
// counts as midnight.
func IsPast(slot models.TimeSlot, now time.Time) bool {
	if slot.Date == "" || slot.StartTime == "" {
		return false
	}

	day, err := time.ParseInLocation(dateLayout, slot.Date, now.Location())
	if err != nil {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case day.Before(today):
		return true
	case day.Equal(today):
		start, _ := ParseClock(slot.StartTime)
		return start < now.Hour()*60+now.Minute()
	default:
		return false
	}
}

// PrunePast splits list into the slots still ahead of now and the ones that
// already started. Kept slots are returned unmodified and in order.
func PrunePast(list []models.TimeSlot, now time.Time) (kept, removed []models.TimeSlot) {
	kept = make([]models.TimeSlot, 0, len(list))

	for _, slot := range list {
		if IsPast(slot, now) {
			removed = append(removed, slot)
			continue
		}
		kept = append(kept, slot)
	}

	return kept, removed
}

// Find returns the index of the slot with the given id, or -1.
func Find(list []models.TimeSlot, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
