package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"hospital-service/api"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

func (s *Service) AdminLogin(ctx context.Context, req api.AdminLoginRequest) (api.LoginResponse, error) {
	const op = "service.AdminLogin"

	email := strings.ToLower(strings.TrimSpace(req.Email))
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	if err := api.Validate(api.AdminLoginRequest{Email: email, Password: req.Password}); err != nil {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	identity, err := s.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrInvalidCredentials)
		}
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)); err != nil {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrInvalidCredentials)
	}

	token, sess, err := s.adminSessions.Issue(ctx, session.Principal{UID: identity.UID, Email: identity.Email})
	if err != nil {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	profile, err := s.store.GetAdmin(ctx, identity.UID)
	if err != nil {
		if rerr := s.adminSessions.Revoke(ctx, token); rerr != nil {
			log.Error("failed to revoke session", sl.Err(rerr))
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Warn("identity has no admin record")
			return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrNotAdmin)
		}

		log.Error("failed to verify admin role", sl.Err(err))
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	p := adminPrincipal(identity, profile)
	if sess, err = s.adminSessions.Refresh(ctx, sess, p); err != nil {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin signed in", slog.String("uid", identity.UID))

	return api.LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt, User: SessionUser(sess.Principal)}, nil
}

func (s *Service) DoctorLogin(ctx context.Context, req api.DoctorLoginRequest) (api.LoginResponse, error) {
	const op = "service.DoctorLogin"

	code := strings.TrimSpace(req.DoctorID)
	log := s.log.With(slog.String("op", op), slog.String("doctor_code", code))

	if code == "" || req.Password == "" {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrInvalidCredentials)
	}

	doc, err := s.store.GetDoctorByCode(ctx, code)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrInvalidCredentials)
		}
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(req.Password)); err != nil {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrInvalidCredentials)
	}

	if doc.Status == models.DoctorInactive {
		log.Warn("inactive doctor tried to sign in")
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, response.ErrInactive)
	}

	token, sess, err := s.doctorSessions.Issue(ctx, doctorPrincipal(doc))
	if err != nil {
		return api.LoginResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("doctor signed in", slog.String("doctor_id", doc.ID))

	return api.LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt, User: SessionUser(sess.Principal)}, nil
}

func (s *Service) AdminSession(ctx context.Context, token string) (session.Session, error) {
	return s.adminSessions.Resolve(ctx, token)
}

func (s *Service) DoctorSession(ctx context.Context, token string) (session.Session, error) {
	return s.doctorSessions.Resolve(ctx, token)
}

func (s *Service) AdminLogout(ctx context.Context, token string) error {
	return s.adminSessions.Revoke(ctx, token)
}

func (s *Service) DoctorLogout(ctx context.Context, token string) error {
	return s.doctorSessions.Revoke(ctx, token)
}

// CreateAdmin registers an identity together with its admin record.
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (string, error) {
	const op = "service.CreateAdmin"

	email = strings.ToLower(strings.TrimSpace(email))
	if err := api.Validate(api.AdminLoginRequest{Email: email, Password: password}); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	uid := uuid.NewString()

	err = s.store.CreateAdmin(ctx,
		models.Identity{UID: uid, Email: email, PasswordHash: string(hash)},
		models.AdminProfile{UID: uid, Name: name, Email: email, UpdatedAt: s.clock.Now()},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return uid, nil
}

// SetDoctorPassword replaces the login password of the doctor with the given code.
func (s *Service) SetDoctorPassword(ctx context.Context, code, password string) error {
	const op = "service.SetDoctorPassword"

	if len(password) < minPasswordLen {
		return fmt.Errorf("%s: %w: password must be at least %d characters", op, response.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SetDoctorPassword(ctx, strings.TrimSpace(code), string(hash)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// classify folds store failures during sign-in into the offline and permission
// sentinels.
func classify(err error) error {
	switch {
	case IsOffline(err):
		return fmt.Errorf("%w: %w", response.ErrOffline, err)
	case IsPermission(err):
		return fmt.Errorf("%w: %w", response.ErrPermission, err)
	default:
		return err
	}
}

func adminPrincipal(id models.Identity, p models.AdminProfile) session.Principal {
	email := p.Email
	if email == "" {
		email = id.Email
	}
	return session.Principal{UID: id.UID, Email: email, Name: p.Name}
}

func doctorPrincipal(d models.Doctor) session.Principal {
	return session.Principal{
		UID:            d.ID,
		Email:          d.Email,
		Name:           d.Name,
		DoctorID:       d.DoctorID,
		Specialization: d.Specialization,
		ProfileImage:   d.Profile.ProfileImage,
		Status:         string(d.Status),
	}
}

// SessionUser converts a session principal for responses.
func SessionUser(p session.Principal) api.SessionUser {
	return api.SessionUser{
		UID:            p.UID,
		Email:          p.Email,
		Name:           p.Name,
		DoctorID:       p.DoctorID,
		Specialization: p.Specialization,
		ProfileImage:   p.ProfileImage,
		Status:         p.Status,
	}
}
