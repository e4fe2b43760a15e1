package models

import (
	"time"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in-progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no-show"
)

// Valid reports whether s is one of the five known statuses. Any valid status
// may replace any other; there is no transition table.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type ConsultationType string

const (
	ConsultationInPerson ConsultationType = "in-person"
	ConsultationOnline   ConsultationType = "online"
)

func (t ConsultationType) Valid() bool {
	return t == ConsultationInPerson || t == ConsultationOnline
}

type DoctorStatus string

const (
	DoctorActive   DoctorStatus = "active"
	DoctorInactive DoctorStatus = "inactive"
)

type Appointment struct {
	ID           string            `json:"id"`
	PatientID    string            `json:"patientId"`
	PatientName  string            `json:"patientName"`
	PatientEmail string            `json:"patientEmail"`
	PatientPhone string            `json:"patientPhone"`
	Date         FlexibleDate      `json:"date"`
	TimeSlot     string            `json:"timeSlot"`
	TimingSlot   string            `json:"timingSlot"`
	Type         ConsultationType  `json:"type"`
	Status       AppointmentStatus `json:"status"`
	Symptoms     string            `json:"symptoms,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	MeetingLink  string            `json:"meetingLink,omitempty"`
	DoctorID     string            `json:"doctorId"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty"`
}

// AppointmentFilter narrows an appointment listing. Empty fields match
// everything.
type AppointmentFilter struct {
	DoctorID string
	Types    []ConsultationType
	Statuses []AppointmentStatus
}

type TimeSlot struct {
	ID             string           `json:"id"`
	DoctorID       string           `json:"doctorId"`
	Date           string           `json:"date"`
	StartTime      string           `json:"startTime"`
	EndTime        string           `json:"endTime"`
	TimingSlot     string           `json:"timingSlot"`
	IsAvailable    bool             `json:"isAvailable"`
	MaxPatients    int              `json:"maxPatients"`
	BookedPatients int              `json:"bookedPatients"`
	Type           ConsultationType `json:"type"`
	MeetingLink    string           `json:"meetingLink,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Address struct {
	Street      string       `json:"street"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Pincode     string       `json:"pincode"`
	Country     string       `json:"country"`
	Landmark    string       `json:"landmark,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Availability struct {
	Days  []string `json:"days,omitempty"`
	Hours string   `json:"hours,omitempty"`
}

// DoctorProfile is the free-form part of a doctor record, stored as one JSON
// document next to the indexed columns.
type DoctorProfile struct {
	Address         Address       `json:"address"`
	Bio             string        `json:"bio,omitempty"`
	Education       []string      `json:"education"`
	Certifications  []string      `json:"certifications"`
	Languages       []string      `json:"languages"`
	ConsultationFee *float64      `json:"consultationFee,omitempty"`
	Availability    *Availability `json:"availability,omitempty"`
	ProfileImage    string        `json:"profileImage,omitempty"`
}

type Doctor struct {
	ID             string       `db:"id"`
	DoctorID       string       `db:"doctor_code"`
	Name           string       `db:"name"`
	Specialization string       `db:"specialization"`
	Experience     int          `db:"experience"`
	Email          string       `db:"email"`
	Phone          string       `db:"phone"`
	PasswordHash   string       `db:"password_hash"`
	Status         DoctorStatus `db:"status"`
	HospitalName   string       `db:"hospital_name"`
	Profile        DoctorProfile
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// SlotList is a doctor's whole time-slot array together with the version it
// was read at. Saves are conditional on that version.
type SlotList struct {
	DoctorID string
	Slots    []TimeSlot
	Version  int64
}

type Identity struct {
	UID          string `db:"uid"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

type AdminProfile struct {
	UID          string    `db:"uid"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	Address      string    `db:"address"`
	HospitalName string    `db:"hospital_name"`
	Position     string    `db:"position"`
	Department   string    `db:"department"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type HospitalSettings struct {
	Name               string     `json:"name"`
	RegistrationNumber string     `json:"registrationNumber"`
	ContactEmail       string     `json:"contactEmail"`
	EmergencyContact   string     `json:"emergencyContact"`
	Address            string     `json:"address"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

func DefaultHospitalSettings() HospitalSettings {
	return HospitalSettings{
		Name:               "MediConnect General Hospital",
		RegistrationNumber: "HSP-2024-001",
		ContactEmail:       "admin@mediconnect.com",
		EmergencyContact:   "+1 (555) 911-0000",
		Address:            "123 Healthcare Ave, Medical District",
	}
}
