// Package slots holds the time-slot rules: 12-hour clock parsing, duration
// display, session labels, submit validation, availability recalculation and
// the past-slot sweep.
package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	minutesPerDay = 24 * 60
	dateLayout    = "2006-01-02"
)

var ErrInvalidClock = errors.New("invalid 12-hour time")

// ParseClock converts a 12-hour display string such as "09:30 PM" into
// minutes after midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)

	clock, modifier, ok := strings.Cut(s, " ")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hh, mm, ok := strings.Cut(clock, ":")
	if !ok || hh == "" || mm == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 1 || hours > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	switch strings.ToUpper(strings.TrimSpace(modifier)) {
	case "AM":
		if hours == 12 {
			hours = 0
		}
	case "PM":
		if hours != 12 {
			hours += 12
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return hours*60 + minutes, nil
}

// FormatClock renders minutes after midnight as "hh:mm AM".
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay

	hours := minutes / 60
	ampm := "AM"
	if hours >= 12 {
		ampm = "PM"
	}

	hour12 := hours % 12
	if hour12 == 0 {
		hour12 = 12
	}

	return fmt.Sprintf("%02d:%02d %s", hour12, minutes%60, ampm)
}

// Duration renders end minus start as "H hr M min", dropping a zero part.
// An end before the start is read as the next day.
func Duration(start, end string) (string, error) {
	if start == "" || end == "" {
		return "", fmt.Errorf("%w: start and end are required", ErrInvalidClock)
	}

	startMin, err := ParseClock(start)
	if err != nil {
		return "", err
	}

	endMin, err := ParseClock(end)
	if err != nil {
		return "", err
	}

	if endMin < startMin {
		endMin += minutesPerDay
	}

	total := endMin - startMin
	hours, minutes := total/60, total%60

	switch {
	case hours == 0:
		return fmt.Sprintf("%d min", minutes), nil
	case minutes == 0:
		return fmt.Sprintf("%d hr", hours), nil
	default:
		return fmt.Sprintf("%d hr %d min", hours, minutes), nil
	}
}

// TimingSlot labels a slot by the part of day its end time falls in.
func TimingSlot(end string) string {
	if end == "" {
		return ""
	}

	// Unparseable times fall back to midnight, which lands in the morning.
	minutes, _ := ParseClock(end)
	hours := minutes / 60

	switch {
	case hours < 12:
		return fmt.Sprintf("Morning Session (Ends at %s)", end)
	case hours < 17:
		return fmt.Sprintf("Afternoon Session (Ends at %s)", end)
	default:
		return fmt.Sprintf("Evening Session (Ends at %s)", end)
	}
}

// TimeOptions lists the selectable start/end times, 06:00 AM to 10:30 PM in
// half-hour steps.
func TimeOptions() []string {
	options := make([]string, 0, 34)
	for hour := 6; hour <= 22; hour++ {
		for minute := 0; minute < 60; minute += 30 {
			options = append(options, FormatClock(hour*60+minute))
		}
	}
	return options
}
