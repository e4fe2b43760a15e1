package api

import (
	"time"

	"hospital-service/internal/counts"
	"hospital-service/internal/models"
)

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type DoctorLoginRequest struct {
	DoctorID string `json:"doctorId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionUser is the signed-in identity echoed back to the client.
type SessionUser struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	DoctorID       string `json:"doctorId,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	ProfileImage   string `json:"profileImage,omitempty"`
	Status         string `json:"status,omitempty"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      SessionUser `json:"user"`
}

type MeResponse struct {
	User      SessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type Doctor struct {
	ID             string               `json:"id"`
	DoctorID       string               `json:"doctorId"`
	Name           string               `json:"name"`
	Specialization string               `json:"specialization"`
	Experience     int                  `json:"experience"`
	Email          string               `json:"email"`
	Phone          string               `json:"phone"`
	Status         models.DoctorStatus  `json:"status"`
	HospitalName   string               `json:"hospitalName"`
	Profile        models.DoctorProfile `json:"profile"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

type DoctorRequest struct {
	DoctorID       string               `json:"doctorId" validate:"omitempty,max=32"`
	Name           string               `json:"name" validate:"required"`
	Specialization string               `json:"specialization" validate:"required"`
	Experience     int                  `json:"experience" validate:"gte=0,lte=80"`
	Email          string               `json:"email" validate:"required,email"`
	Phone          string               `json:"phone"`
	Password       string               `json:"password" validate:"omitempty,min=6"`
	Status         models.DoctorStatus  `json:"status" validate:"omitempty,oneof=active inactive"`
	HospitalName   string               `json:"hospitalName"`
	Profile        models.DoctorProfile `json:"profile"`
}

type DoctorCreateResponse struct {
	Doctor Doctor `json:"doctor"`
	// Password is set only when one was generated; it is not retrievable later.
	Password string `json:"password,omitempty"`
}

type DoctorListResponse struct {
	Doctors []Doctor `json:"doctors"`
	Warning string   `json:"warning,omitempty"`
}

// DoctorProfileRequest merges into the signed-in doctor's record. Nil fields
// are left untouched.
type DoctorProfileRequest struct {
	Name           *string               `json:"name" validate:"omitempty,min=1"`
	Specialization *string               `json:"specialization"`
	Experience     *int                  `json:"experience" validate:"omitempty,gte=0,lte=80"`
	Email          *string               `json:"email" validate:"omitempty,email"`
	Phone          *string               `json:"phone"`
	HospitalName   *string               `json:"hospitalName"`
	Profile        *models.DoctorProfile `json:"profile"`
}

type ProfileImageResponse struct {
	URL    string `json:"url"`
	Doctor Doctor `json:"doctor"`
}

type AppointmentsResponse struct {
	Appointments []models.Appointment `json:"appointments"`
	Counts       counts.Counts        `json:"counts"`
	Warning      string               `json:"warning,omitempty"`
}

type DoctorDashboardResponse struct {
	Doctor            SessionUser          `json:"doctor"`
	Counts            counts.Counts        `json:"counts"`
	TodayAppointments []models.Appointment `json:"todayAppointments"`
	Warning           string               `json:"warning,omitempty"`
}

type StatusUpdateRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required"`
}

type NotesRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}

type JoinMeetingResponse struct {
	MeetingLink string             `json:"meetingLink"`
	Appointment models.Appointment `json:"appointment"`
}

type TimeSlotRequest struct {
	Date           string                  `json:"date"`
	StartTime      string                  `json:"startTime"`
	EndTime        string                  `json:"endTime"`
	TimingSlot     string                  `json:"timingSlot"`
	MaxPatients    int                     `json:"maxPatients"`
	BookedPatients int                     `json:"bookedPatients"`
	Type           models.ConsultationType `json:"type"`
	MeetingLink    string                  `json:"meetingLink"`
}

// TimeSlot is a stored slot plus its display duration.
type TimeSlot struct {
	models.TimeSlot
	Duration string `json:"duration,omitempty"`
}

type TimeSlotsResponse struct {
	Slots       []TimeSlot `json:"slots"`
	TimeOptions []string   `json:"timeOptions,omitempty"`
	Warning     string     `json:"warning,omitempty"`
}

type TimeSlotResponse struct {
	Slot    TimeSlot `json:"slot"`
	Warning string   `json:"warning,omitempty"`
}

type WarningResponse struct {
	Warning string `json:"warning,omitempty"`
}

type DashboardResponse struct {
	Stats   models.DashboardStats `json:"stats"`
	Warning string                `json:"warning,omitempty"`
}

type AnalyticsResponse struct {
	Analytics models.PatientAnalytics `json:"analytics"`
	Warning   string                  `json:"warning,omitempty"`
}

type AdminProfile struct {
	UID          string    `json:"uid"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	HospitalName string    `json:"hospitalName"`
	Position     string    `json:"position"`
	Department   string    `json:"department"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AdminProfileRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	HospitalName *string `json:"hospitalName"`
	Position     *string `json:"position"`
	Department   *string `json:"department"`
}

type AdminProfileResponse struct {
	Profile AdminProfile `json:"profile"`
	Warning string       `json:"warning,omitempty"`
}

type SettingsRequest struct {
	Name               *string `json:"name"`
	RegistrationNumber *string `json:"registrationNumber"`
	ContactEmail       *string `json:"contactEmail" validate:"omitempty,email"`
	EmergencyContact   *string `json:"emergencyContact"`
	Address            *string `json:"address"`
}

type SettingsResponse struct {
	Settings models.HospitalSettings `json:"settings"`
	Warning  string                  `json:"warning,omitempty"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Connected     bool   `json:"connected"`
	PendingWrites int    `json:"pendingWrites"`
}
