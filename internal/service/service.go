package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"hospital-service/internal/clock"
	"hospital-service/internal/counts"
	"hospital-service/internal/lock"
	"hospital-service/internal/models"
	"hospital-service/internal/outbox"
	"hospital-service/internal/session"
)

const (
	settingsKey        = "hospital"
	defaultSlotLockTTL = 10 * time.Second
)

type Store interface {
	// Doctors
	ListDoctors(ctx context.Context, search string) ([]models.Doctor, error)
	GetDoctor(ctx context.Context, id string) (models.Doctor, error)
	GetDoctorByCode(ctx context.Context, code string) (models.Doctor, error)
	CreateDoctor(ctx context.Context, d models.Doctor) error
	UpdateDoctor(ctx context.Context, d models.Doctor) error
	DeleteDoctor(ctx context.Context, id string) error
	SetDoctorPassword(ctx context.Context, code, hash string) error

	// Time slots
	GetSlots(ctx context.Context, doctorID string) (models.SlotList, error)
	SaveSlots(ctx context.Context, doctorID string, slots []models.TimeSlot, version int64) (int64, error)

	// Appointments
	ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, doctorID, id string, status models.AppointmentStatus, at time.Time) error
	UpdateAppointmentNotes(ctx context.Context, doctorID, id, notes string, at time.Time) error
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
	PatientAnalytics(ctx context.Context, dayStart, dayEnd time.Time) (models.PatientAnalytics, error)

	// Administrators
	GetIdentityByEmail(ctx context.Context, email string) (models.Identity, error)
	CreateAdmin(ctx context.Context, id models.Identity, p models.AdminProfile) error
	GetAdmin(ctx context.Context, uid string) (models.AdminProfile, error)
	SaveAdmin(ctx context.Context, p models.AdminProfile) error

	// Settings
	GetSettings(ctx context.Context, key string, dst any) error
	SaveSettings(ctx context.Context, key string, value any) error
}

type Sessions interface {
	Issue(ctx context.Context, p session.Principal) (string, session.Session, error)
	Resolve(ctx context.Context, token string) (session.Session, error)
	Revoke(ctx context.Context, token string) error
	Refresh(ctx context.Context, s session.Session, p session.Principal) (session.Session, error)
}

type Connectivity interface {
	IsConnected() bool
}

type Blobs interface {
	Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (string, error)
}

type Deps struct {
	Store          Store
	Locker         lock.Locker
	Conn           Connectivity
	Outbox         *outbox.Outbox
	Cache          *outbox.Cache
	AdminSessions  Sessions
	DoctorSessions Sessions
	Blobs          Blobs
	Feed           counts.Source
	Clock          clock.Clock
}

type Options struct {
	MeetingBaseURL string
	MaxImageBytes  int64
	SlotLockTTL    time.Duration
}

type Service struct {
	log            *slog.Logger
	store          Store
	locker         lock.Locker
	conn           Connectivity
	outbox         *outbox.Outbox
	cache          *outbox.Cache
	adminSessions  Sessions
	doctorSessions Sessions
	blobs          Blobs
	feed           counts.Source
	clock          clock.Clock
	opts           Options
}

func NewService(log *slog.Logger, deps Deps, opts Options) *Service {
	if opts.SlotLockTTL <= 0 {
		opts.SlotLockTTL = defaultSlotLockTTL
	}
	if deps.Clock == nil {
		deps.Clock = clock.New(nil)
	}
	if deps.Outbox == nil {
		deps.Outbox = outbox.New(deps.Clock)
	}
	if deps.Cache == nil {
		deps.Cache = outbox.NewCache()
	}

	return &Service{
		log:            log,
		store:          deps.Store,
		locker:         deps.Locker,
		conn:           deps.Conn,
		outbox:         deps.Outbox,
		cache:          deps.Cache,
		adminSessions:  deps.AdminSessions,
		doctorSessions: deps.DoctorSessions,
		blobs:          deps.Blobs,
		feed:           deps.Feed,
		clock:          deps.Clock,
		opts:           opts,
	}
}

func (s *Service) connected() bool {
	return s.conn == nil || s.conn.IsConnected()
}
