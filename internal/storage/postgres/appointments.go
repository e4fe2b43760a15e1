package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"hospital-service/internal/models"
)

const appointmentColumns = `id, patient_id, patient_name, patient_email, patient_phone, date,
	time_slot, timing_slot, type, status, symptoms, notes, meeting_link, doctor_id, updated_at`

func scanAppointment(row rowScanner) (models.Appointment, error) {
	var (
		a         models.Appointment
		updatedAt *time.Time
	)

	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PatientEmail, &a.PatientPhone, &a.Date,
		&a.TimeSlot, &a.TimingSlot, &a.Type, &a.Status, &a.Symptoms, &a.Notes, &a.MeetingLink,
		&a.DoctorID, &updatedAt)
	if err != nil {
		return models.Appointment{}, err
	}

	a.UpdatedAt = updatedAt

	return a, nil
}

func (s *Storage) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	const op = "storage.postgres.ListAppointments"

	var (
		where []string
		args  []any
	)

	if f.DoctorID != "" {
		args = append(args, f.DoctorID)
		where = append(where, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC NULLS LAST, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	list := make([]models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// ListDoctorAppointments is ListAppointments for one doctor; the live feed
// reloads through it.
func (s *Storage) ListDoctorAppointments(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return s.ListAppointments(ctx, models.AppointmentFilter{DoctorID: doctorID})
}

func (s *Storage) GetAppointment(ctx context.Context, id string) (models.Appointment, error) {
	const op = "storage.postgres.GetAppointment"

	a, err := scanAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return a, nil
}

// UpdateAppointmentStatus sets status on one of doctorID's appointments.
func (s *Storage) UpdateAppointmentStatus(ctx context.Context, doctorID, id string, status models.AppointmentStatus, at time.Time) error {
	const op = "storage.postgres.UpdateAppointmentStatus"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET status = $3, updated_at = $4 WHERE id = $1 AND doctor_id = $2`,
		id, doctorID, status, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return expectOne(op, res)
}

func (s *Storage) UpdateAppointmentNotes(ctx context.Context, doctorID, id, notes string, at time.Time) error {
	const op = "storage.postgres.UpdateAppointmentNotes"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET notes = $3, updated_at = $4 WHERE id = $1 AND doctor_id = $2`,
		id, doctorID, notes, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return expectOne(op, res)
}

// DashboardStats aggregates the admin dashboard counters in one pass.
func (s *Storage) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	const op = "storage.postgres.DashboardStats"

	var st models.DashboardStats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM doctors),
			COUNT(*),
			COUNT(*) FILTER (WHERE type = 'online'),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM appointments`,
	).Scan(&st.TotalDoctors, &st.TotalAppointments, &st.OnlineConsultations, &st.CompletedAppointments)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return st, nil
}

// PatientAnalytics aggregates patient counters; [dayStart, dayEnd) is today.
func (s *Storage) PatientAnalytics(ctx context.Context, dayStart, dayEnd time.Time) (models.PatientAnalytics, error) {
	const op = "storage.postgres.PatientAnalytics"

	var (
		a                models.PatientAnalytics
		total, completed int
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT NULLIF(patient_id, '')),
			COUNT(*) FILTER (WHERE date >= $1 AND date < $2),
			COUNT(*) FILTER (WHERE type = 'online'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*)
		FROM appointments`,
		dayStart, dayEnd,
	).Scan(&a.TotalPatients, &a.AppointmentsToday, &a.OnlineConsultations, &completed, &total)
	if err != nil {
		return models.PatientAnalytics{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	a.CompletionRate = models.CompletionRate(completed, total)

	return a, nil
}
