package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hospital-service/api"
	"hospital-service/internal/counts"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

// DoctorAppointments lists the doctor's appointments with their counts. Read
// failures come back as an empty list and a warning, the way the live tracker
// reports them.
func (s *Service) DoctorAppointments(ctx context.Context, doctorID string) (api.AppointmentsResponse, error) {
	list, warning := s.loadAppointments(ctx, models.AppointmentFilter{DoctorID: doctorID})

	return api.AppointmentsResponse{
		Appointments: list,
		Counts:       counts.Derive(list, s.clock.Now()),
		Warning:      warning,
	}, nil
}

// OnlineConsultations lists the doctor's online appointments.
func (s *Service) OnlineConsultations(ctx context.Context, doctorID string) (api.AppointmentsResponse, error) {
	list, warning := s.loadAppointments(ctx, models.AppointmentFilter{
		DoctorID: doctorID,
		Types:    []models.ConsultationType{models.ConsultationOnline},
	})

	return api.AppointmentsResponse{
		Appointments: list,
		Counts:       counts.Derive(list, s.clock.Now()),
		Warning:      warning,
	}, nil
}

func (s *Service) DoctorDashboard(ctx context.Context, sess session.Session) (api.DoctorDashboardResponse, error) {
	list, warning := s.loadAppointments(ctx, models.AppointmentFilter{DoctorID: sess.Principal.UID})
	now := s.clock.Now()

	return api.DoctorDashboardResponse{
		Doctor:            SessionUser(sess.Principal),
		Counts:            counts.Derive(list, now),
		TodayAppointments: counts.Today(list, now),
		Warning:           warning,
	}, nil
}

func (s *Service) loadAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, string) {
	const op = "service.loadAppointments"

	if f.DoctorID == "" {
		return []models.Appointment{}, ""
	}

	if !s.connected() {
		return []models.Appointment{}, response.MsgNoConnection
	}

	list, err := s.store.ListAppointments(ctx, f)
	if err != nil {
		s.log.Error("failed to load appointments", slog.String("op", op), slog.String("doctor_id", f.DoctorID), sl.Err(err))
		if IsOffline(err) {
			return []models.Appointment{}, response.MsgNoConnection
		}
		return []models.Appointment{}, counts.MsgLoadFailed
	}

	return list, ""
}

// UpdateAppointmentStatus sets any known status; there is no transition table.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, doctorID, id string, status models.AppointmentStatus) (models.Appointment, error) {
	const op = "service.UpdateAppointmentStatus"

	if !status.Valid() {
		return models.Appointment{}, fmt.Errorf("%s: %w: unknown status %q", op, response.ErrValidation, status)
	}

	if err := s.store.UpdateAppointmentStatus(ctx, doctorID, id, status, s.clock.Now()); err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return a, nil
}

func (s *Service) UpdateAppointmentNotes(ctx context.Context, doctorID, id, notes string) (models.Appointment, error) {
	const op = "service.UpdateAppointmentNotes"

	if err := s.store.UpdateAppointmentNotes(ctx, doctorID, id, strings.TrimSpace(notes), s.clock.Now()); err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return a, nil
}

// JoinMeeting returns the consultation's meeting link and marks it in progress.
// Appointments without their own link get one under the configured meeting
// base URL.
func (s *Service) JoinMeeting(ctx context.Context, doctorID, id string) (api.JoinMeetingResponse, error) {
	const op = "service.JoinMeeting"

	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return api.JoinMeetingResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	if a.DoctorID != doctorID {
		return api.JoinMeetingResponse{}, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	if a.Type != models.ConsultationOnline {
		return api.JoinMeetingResponse{}, fmt.Errorf("%s: %w: only online consultations have a meeting", op, response.ErrValidation)
	}

	link := a.MeetingLink
	if link == "" {
		link = strings.TrimRight(s.opts.MeetingBaseURL, "/") + "/meeting-" + a.ID
	}

	now := s.clock.Now()
	if err := s.store.UpdateAppointmentStatus(ctx, doctorID, id, models.StatusInProgress, now); err != nil {
		return api.JoinMeetingResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	a.Status = models.StatusInProgress
	a.UpdatedAt = &now

	return api.JoinMeetingResponse{MeetingLink: link, Appointment: a}, nil
}

// NewTracker returns a live counts tracker fed by the appointment feed.
func (s *Service) NewTracker() *counts.Tracker {
	var conn counts.Connectivity = alwaysConnected{}
	if s.conn != nil {
		conn = s.conn
	}
	return counts.NewTracker(s.log, s.feed, conn, s.clock)
}

type alwaysConnected struct{}

func (alwaysConnected) IsConnected() bool { return true }
