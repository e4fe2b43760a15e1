package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"hospital-service/api"
	"hospital-service/internal/blob"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

const (
	minPasswordLen       = 6
	generatedPasswordLen = 8
	doctorCodeAttempts   = 5
	passwordAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func (s *Service) ListDoctors(ctx context.Context, search string) (api.DoctorListResponse, error) {
	const op = "service.ListDoctors"

	list, err := s.store.ListDoctors(ctx, strings.TrimSpace(search))
	if err != nil {
		return api.DoctorListResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	out := make([]api.Doctor, 0, len(list))
	for _, d := range list {
		out = append(out, doctorView(d))
	}

	return api.DoctorListResponse{Doctors: out}, nil
}

// CreateDoctor registers a doctor. An empty doctorId gets a generated DOC####
// code and an empty password gets a generated one, returned only here.
func (s *Service) CreateDoctor(ctx context.Context, req api.DoctorRequest) (api.DoctorCreateResponse, error) {
	const op = "service.CreateDoctor"

	log := s.log.With(slog.String("op", op))

	if err := api.Validate(req); err != nil {
		return api.DoctorCreateResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	var resp api.DoctorCreateResponse

	password := req.Password
	if password == "" {
		generated, err := randomString(passwordAlphabet, generatedPasswordLen)
		if err != nil {
			return api.DoctorCreateResponse{}, fmt.Errorf("%s: %w", op, err)
		}
		password = generated
		resp.Password = generated
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return api.DoctorCreateResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()
	d := models.Doctor{
		ID:             uuid.NewString(),
		DoctorID:       strings.TrimSpace(req.DoctorID),
		Name:           strings.TrimSpace(req.Name),
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Email:          strings.TrimSpace(req.Email),
		Phone:          req.Phone,
		PasswordHash:   string(hash),
		Status:         req.Status,
		HospitalName:   req.HospitalName,
		Profile:        req.Profile,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if d.Status == "" {
		d.Status = models.DoctorActive
	}

	generateCode := d.DoctorID == ""

	for attempt := 1; ; attempt++ {
		if generateCode {
			if d.DoctorID, err = doctorCode(); err != nil {
				return api.DoctorCreateResponse{}, fmt.Errorf("%s: %w", op, err)
			}
		}

		err = s.store.CreateDoctor(ctx, d)
		if err == nil {
			break
		}
		if !generateCode || !errors.Is(err, response.ErrConflict) || attempt == doctorCodeAttempts {
			return api.DoctorCreateResponse{}, fmt.Errorf("%s: %w", op, classify(err))
		}

		log.Debug("generated doctor code taken, retrying", slog.String("doctor_code", d.DoctorID))
	}

	log.Info("doctor created", slog.String("doctor_id", d.ID), slog.String("doctor_code", d.DoctorID))

	resp.Doctor = doctorView(d)

	return resp, nil
}

// UpdateDoctor overwrites the admin-editable fields. The password changes only
// when a new one is given.
func (s *Service) UpdateDoctor(ctx context.Context, id string, req api.DoctorRequest) (api.Doctor, error) {
	const op = "service.UpdateDoctor"

	if err := api.Validate(req); err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, err)
	}

	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	if code := strings.TrimSpace(req.DoctorID); code != "" {
		d.DoctorID = code
	}
	d.Name = strings.TrimSpace(req.Name)
	d.Specialization = req.Specialization
	d.Experience = req.Experience
	d.Email = strings.TrimSpace(req.Email)
	d.Phone = req.Phone
	d.HospitalName = req.HospitalName
	d.Profile = mergeProfile(d.Profile, req.Profile)
	if req.Status != "" {
		d.Status = req.Status
	}

	d.PasswordHash = ""
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return api.Doctor{}, fmt.Errorf("%s: %w", op, err)
		}
		d.PasswordHash = string(hash)
	}

	d.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return doctorView(d), nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	const op = "service.DeleteDoctor"

	if err := s.store.DeleteDoctor(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	s.outbox.Drop(id)

	return nil
}

func (s *Service) DoctorProfile(ctx context.Context, doctorID string) (api.Doctor, error) {
	const op = "service.DoctorProfile"

	d, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	return doctorView(d), nil
}

// UpdateDoctorProfile merges the doctor's own edits and refreshes the session
// so the new name and image show up without signing in again.
func (s *Service) UpdateDoctorProfile(ctx context.Context, sess session.Session, req api.DoctorProfileRequest) (api.Doctor, error) {
	const op = "service.UpdateDoctorProfile"

	if err := api.Validate(req); err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, err)
	}

	d, err := s.store.GetDoctor(ctx, sess.Principal.UID)
	if err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.Specialization != nil {
		d.Specialization = *req.Specialization
	}
	if req.Experience != nil {
		d.Experience = *req.Experience
	}
	if req.Email != nil {
		d.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		d.Phone = *req.Phone
	}
	if req.HospitalName != nil {
		d.HospitalName = *req.HospitalName
	}
	if req.Profile != nil {
		d.Profile = mergeProfile(d.Profile, *req.Profile)
	}

	d.PasswordHash = ""
	d.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return api.Doctor{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	s.refreshDoctorSession(ctx, sess, d)

	return doctorView(d), nil
}

// UploadProfileImage stores an image/* upload and points the doctor's profile
// at it.
func (s *Service) UploadProfileImage(ctx context.Context, sess session.Session, fileName, contentType string, size int64, r io.Reader) (api.ProfileImageResponse, error) {
	const op = "service.UploadProfileImage"

	log := s.log.With(slog.String("op", op), slog.String("doctor_id", sess.Principal.UID))

	maxBytes := s.opts.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = blob.DefaultMaxImageBytes
	}

	if err := blob.ValidateImage(fileName, contentType, size, maxBytes); err != nil {
		return api.ProfileImageResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	d, err := s.store.GetDoctor(ctx, sess.Principal.UID)
	if err != nil {
		return api.ProfileImageResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	url, err := s.blobs.Put(ctx, blob.ProfileImageKey(d.ID, s.clock.Now(), fileName), r, maxBytes)
	if err != nil {
		if errors.Is(err, blob.ErrFileTooLarge) {
			return api.ProfileImageResponse{}, fmt.Errorf("%s: %w: %w", op, response.ErrValidation, err)
		}
		return api.ProfileImageResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	d.Profile.ProfileImage = url
	d.PasswordHash = ""
	d.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return api.ProfileImageResponse{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	log.Info("profile image updated", slog.String("url", url))

	s.refreshDoctorSession(ctx, sess, d)

	return api.ProfileImageResponse{URL: url, Doctor: doctorView(d)}, nil
}

func (s *Service) refreshDoctorSession(ctx context.Context, sess session.Session, d models.Doctor) {
	if sess.ID == "" {
		return
	}
	if _, err := s.doctorSessions.Refresh(ctx, sess, doctorPrincipal(d)); err != nil {
		s.log.Warn("failed to refresh doctor session", slog.String("doctor_id", d.ID), sl.Err(err))
	}
}

// mergeProfile overlays the non-empty fields of upd onto cur.
func mergeProfile(cur, upd models.DoctorProfile) models.DoctorProfile {
	if upd.Address != (models.Address{}) {
		cur.Address = upd.Address
	}
	if upd.Bio != "" {
		cur.Bio = upd.Bio
	}
	if upd.Education != nil {
		cur.Education = upd.Education
	}
	if upd.Certifications != nil {
		cur.Certifications = upd.Certifications
	}
	if upd.Languages != nil {
		cur.Languages = upd.Languages
	}
	if upd.ConsultationFee != nil {
		cur.ConsultationFee = upd.ConsultationFee
	}
	if upd.Availability != nil {
		cur.Availability = upd.Availability
	}
	if upd.ProfileImage != "" {
		cur.ProfileImage = upd.ProfileImage
	}
	return cur
}

func doctorView(d models.Doctor) api.Doctor {
	return api.Doctor{
		ID:             d.ID,
		DoctorID:       d.DoctorID,
		Name:           d.Name,
		Specialization: d.Specialization,
		Experience:     d.Experience,
		Email:          d.Email,
		Phone:          d.Phone,
		Status:         d.Status,
		HospitalName:   d.HospitalName,
		Profile:        d.Profile,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func doctorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DOC%04d", 1000+n.Int64()), nil
}

func randomString(alphabet string, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))

	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}

	return string(b), nil
}
