package models

import "math"

type DashboardStats struct {
	TotalDoctors          int `json:"totalDoctors"`
	TotalAppointments     int `json:"totalAppointments"`
	OnlineConsultations   int `json:"onlineConsultations"`
	CompletedAppointments int `json:"completedAppointments"`
}

type PatientAnalytics struct {
	TotalPatients       int `json:"totalPatients"`
	AppointmentsToday   int `json:"appointmentsToday"`
	OnlineConsultations int `json:"onlineConsultations"`
	CompletionRate      int `json:"completionRate"`
}

// Sample figures shown when live data cannot be loaded.
var (
	SampleDashboardStats = DashboardStats{
		TotalDoctors:          12,
		TotalAppointments:     156,
		OnlineConsultations:   45,
		CompletedAppointments: 89,
	}

	SamplePatientAnalytics = PatientAnalytics{
		TotalPatients:       1247,
		AppointmentsToday:   23,
		OnlineConsultations: 156,
		CompletionRate:      87,
	}
)

// CompletionRate is completed/total as a rounded percentage, 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
