package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"hospital-service/internal/models"
	"hospital-service/pkg/response"
)

const doctorColumns = `id, doctor_code, name, specialization, experience, email, phone,
	password_hash, status, hospital_name, profile, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoctor(row rowScanner) (models.Doctor, error) {
	var (
		d       models.Doctor
		profile []byte
	)

	err := row.Scan(&d.ID, &d.DoctorID, &d.Name, &d.Specialization, &d.Experience, &d.Email, &d.Phone,
		&d.PasswordHash, &d.Status, &d.HospitalName, &profile, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return models.Doctor{}, err
	}

	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &d.Profile); err != nil {
			return models.Doctor{}, fmt.Errorf("decode profile: %w", err)
		}
	}

	return d, nil
}

// ListDoctors returns doctors newest first. A non-empty search matches name,
// specialization, email or doctor code case-insensitively.
func (s *Storage) ListDoctors(ctx context.Context, search string) ([]models.Doctor, error) {
	const op = "storage.postgres.ListDoctors"

	query := `SELECT ` + doctorColumns + ` FROM doctors`
	var args []any

	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE name ILIKE $1 OR specialization ILIKE $1 OR email ILIKE $1 OR doctor_code ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	doctors := make([]models.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		doctors = append(doctors, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doctors, nil
}

func (s *Storage) GetDoctor(ctx context.Context, id string) (models.Doctor, error) {
	const op = "storage.postgres.GetDoctor"

	d, err := scanDoctor(s.db.QueryRowContext(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		return models.Doctor{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return d, nil
}

func (s *Storage) GetDoctorByCode(ctx context.Context, code string) (models.Doctor, error) {
	const op = "storage.postgres.GetDoctorByCode"

	d, err := scanDoctor(s.db.QueryRowContext(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE doctor_code = $1`, code))
	if err != nil {
		return models.Doctor{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return d, nil
}

func (s *Storage) CreateDoctor(ctx context.Context, d models.Doctor) error {
	const op = "storage.postgres.CreateDoctor"

	profile, err := json.Marshal(d.Profile)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO doctors (id, doctor_code, name, specialization, experience, email, phone,
			password_hash, status, hospital_name, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID, d.DoctorID, d.Name, d.Specialization, d.Experience, d.Email, d.Phone,
		d.PasswordHash, d.Status, d.HospitalName, profile, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

// UpdateDoctor overwrites the record's fields. The password hash is only
// touched when d carries one.
func (s *Storage) UpdateDoctor(ctx context.Context, d models.Doctor) error {
	const op = "storage.postgres.UpdateDoctor"

	profile, err := json.Marshal(d.Profile)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE doctors SET
			doctor_code = $2, name = $3, specialization = $4, experience = $5, email = $6,
			phone = $7, password_hash = COALESCE(NULLIF($8, ''), password_hash), status = $9,
			hospital_name = $10, profile = $11, updated_at = $12
		WHERE id = $1`,
		d.ID, d.DoctorID, d.Name, d.Specialization, d.Experience, d.Email,
		d.Phone, d.PasswordHash, d.Status, d.HospitalName, profile, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return expectOne(op, res)
}

func (s *Storage) DeleteDoctor(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteDoctor"

	res, err := s.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return expectOne(op, res)
}

func (s *Storage) SetDoctorPassword(ctx context.Context, code, hash string) error {
	const op = "storage.postgres.SetDoctorPassword"

	res, err := s.db.ExecContext(ctx,
		`UPDATE doctors SET password_hash = $2, updated_at = now() WHERE doctor_code = $1`, code, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return expectOne(op, res)
}

func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
