package slots

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"hospital-service/internal/models"
	"hospital-service/pkg/response"
)

const (
	MinPatients = 1
	MaxPatients = 10
)

// Input is the submitted form for creating or editing a slot.
type Input struct {
	Date           string
	StartTime      string
	EndTime        string
	TimingSlot     string
	MaxPatients    int
	BookedPatients int
	Type           models.ConsultationType
	MeetingLink    string
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldMessage is the message shown next to the form.
func (e *ValidationError) FieldMessage() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return response.ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Validate applies the submit-time rules. It stops at the first failing rule.
func Validate(in Input) error {
	if in.Date == "" || in.StartTime == "" || in.EndTime == "" {
		return invalid("form", "Please fill in all required fields.")
	}

	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return invalid("date", "Date must be in YYYY-MM-DD format.")
	}

	if in.MaxPatients < MinPatients || in.MaxPatients > MaxPatients {
		return invalid("maxPatients", fmt.Sprintf("Max patients must be between %d and %d.", MinPatients, MaxPatients))
	}

	if in.BookedPatients < 0 {
		return invalid("bookedPatients", "Booked patients cannot be negative.")
	}

	if in.Type == "" {
		in.Type = models.ConsultationInPerson
	}
	if !in.Type.Valid() {
		return invalid("type", "Type must be in-person or online.")
	}

	if in.Type == models.ConsultationOnline {
		if err := ValidateMeetingLink(in.MeetingLink); err != nil {
			return err
		}
	}

	start, err := ParseClock(in.StartTime)
	if err != nil {
		return invalid("startTime", "Start time must look like 09:00 AM.")
	}

	end, err := ParseClock(in.EndTime)
	if err != nil {
		return invalid("endTime", "End time must look like 10:00 AM.")
	}

	if start >= end {
		return invalid("endTime", "End time must be after start time.")
	}

	return nil
}

// ValidateMeetingLink requires an absolute http or https URL with a host.
func ValidateMeetingLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return invalid("meetingLink", "Meeting link is required for online slots.")
	}

	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return invalid("meetingLink", "Please enter a valid meeting link URL.")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("meetingLink", "Meeting link must be a valid URL starting with http:// or https://")
	}

	return nil
}
