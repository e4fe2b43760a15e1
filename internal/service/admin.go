package service

import (
	"context"
	"errors"
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

// AdminDashboard returns the hospital-wide counters. If they cannot be read
// the sample dataset is shown with a warning banner.
func (s *Service) AdminDashboard(ctx context.Context) (api.DashboardResponse, error) {
	const op = "service.AdminDashboard"

	stats, err := s.store.DashboardStats(ctx)
	if err != nil {
		s.log.Warn("serving sample dashboard stats", slog.String("op", op), sl.Err(err))
		return api.DashboardResponse{Stats: models.SampleDashboardStats, Warning: response.MsgSampleData}, nil
	}

	return api.DashboardResponse{Stats: stats}, nil
}

func (s *Service) PatientAnalytics(ctx context.Context) (api.AnalyticsResponse, error) {
	const op = "service.PatientAnalytics"

	start, end := counts.DayWindow(s.clock.Now())

	a, err := s.store.PatientAnalytics(ctx, start, end)
	if err != nil {
		s.log.Warn("serving sample patient analytics", slog.String("op", op), sl.Err(err))
		return api.AnalyticsResponse{Analytics: models.SamplePatientAnalytics, Warning: response.MsgSampleData}, nil
	}

	return api.AnalyticsResponse{Analytics: a}, nil
}

// AdminProfile returns the signed-in administrator's profile.
func (s *Service) AdminProfile(ctx context.Context, sess session.Session) (api.AdminProfileResponse, error) {
	const op = "service.AdminProfile"

	p, err := s.store.GetAdmin(ctx, sess.Principal.UID)
	if err != nil {
		if IsOffline(err) {
			return api.AdminProfileResponse{
				Profile: adminView(profileFromSession(sess)),
				Warning: response.MsgConnectionLost,
			}, nil
		}
		return api.AdminProfileResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return api.AdminProfileResponse{Profile: adminView(p)}, nil
}

func (s *Service) UpdateAdminProfile(ctx context.Context, sess session.Session, req api.AdminProfileRequest) (api.AdminProfileResponse, error) {
	const op = "service.UpdateAdminProfile"

	if err := api.Validate(req); err != nil {
		return api.AdminProfileResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.store.GetAdmin(ctx, sess.Principal.UID)
	if err != nil {
		if !errors.Is(err, response.ErrNotFound) {
			return api.AdminProfileResponse{}, fmt.Errorf("%s: %w", op, classify(err))
		}
		p = profileFromSession(sess)
	}

	mergeString(&p.Name, req.Name)
	mergeString(&p.Email, req.Email)
	mergeString(&p.Phone, req.Phone)
	mergeString(&p.Address, req.Address)
	mergeString(&p.HospitalName, req.HospitalName)
	mergeString(&p.Position, req.Position)
	mergeString(&p.Department, req.Department)
	p.UpdatedAt = s.clock.Now()

	if err := s.store.SaveAdmin(ctx, p); err != nil {
		return api.AdminProfileResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	principal := sess.Principal
	principal.Name = p.Name
	if p.Email != "" {
		principal.Email = p.Email
	}
	if _, err := s.adminSessions.Refresh(ctx, sess, principal); err != nil {
		s.log.Warn("failed to refresh admin session", slog.String("op", op), sl.Err(err))
	}

	return api.AdminProfileResponse{Profile: adminView(p)}, nil
}

// HospitalSettings returns the stored settings, or the defaults when none were
// saved yet.
func (s *Service) HospitalSettings(ctx context.Context) (api.SettingsResponse, error) {
	const op = "service.HospitalSettings"

	settings, err := s.loadSettings(ctx)
	if err != nil {
		if IsOffline(err) {
			return api.SettingsResponse{Settings: models.DefaultHospitalSettings(), Warning: response.MsgConnectionLost}, nil
		}
		return api.SettingsResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return api.SettingsResponse{Settings: settings}, nil
}

func (s *Service) UpdateHospitalSettings(ctx context.Context, req api.SettingsRequest) (api.SettingsResponse, error) {
	const op = "service.UpdateHospitalSettings"

	if err := api.Validate(req); err != nil {
		return api.SettingsResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return api.SettingsResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	mergeString(&settings.Name, req.Name)
	mergeString(&settings.RegistrationNumber, req.RegistrationNumber)
	mergeString(&settings.ContactEmail, req.ContactEmail)
	mergeString(&settings.EmergencyContact, req.EmergencyContact)
	mergeString(&settings.Address, req.Address)

	now := s.clock.Now()
	settings.UpdatedAt = &now

	if err := s.store.SaveSettings(ctx, settingsKey, settings); err != nil {
		return api.SettingsResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return api.SettingsResponse{Settings: settings}, nil
}

func (s *Service) loadSettings(ctx context.Context) (models.HospitalSettings, error) {
	settings := models.DefaultHospitalSettings()

	if err := s.store.GetSettings(ctx, settingsKey, &settings); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return models.DefaultHospitalSettings(), nil
		}
		return models.HospitalSettings{}, err
	}

	return settings, nil
}

func (s *Service) Health() api.HealthResponse {
	resp := api.HealthResponse{
		Status:        "ok",
		Connected:     s.connected(),
		PendingWrites: s.outbox.Len(),
	}
	if !resp.Connected {
		resp.Status = "offline"
	}
	return resp
}

func mergeString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func profileFromSession(sess session.Session) models.AdminProfile {
	return models.AdminProfile{
		UID:   sess.Principal.UID,
		Name:  sess.Principal.Name,
		Email: sess.Principal.Email,
	}
}

func adminView(p models.AdminProfile) api.AdminProfile {
	return api.AdminProfile{
		UID:          p.UID,
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Address:      p.Address,
		HospitalName: p.HospitalName,
		Position:     p.Position,
		Department:   p.Department,
		UpdatedAt:    p.UpdatedAt,
	}
}
