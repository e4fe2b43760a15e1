package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hospital-service/internal/models"
	"hospital-service/pkg/response"
)

func (s *Storage) GetIdentityByEmail(ctx context.Context, email string) (models.Identity, error) {
	const op = "storage.postgres.GetIdentityByEmail"

	var id models.Identity

	err := s.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash FROM identities WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email),
	).Scan(&id.UID, &id.Email, &id.PasswordHash)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return id, nil
}

// CreateAdmin stores an identity together with its admin record.
func (s *Storage) CreateAdmin(ctx context.Context, id models.Identity, p models.AdminProfile) error {
	const op = "storage.postgres.CreateAdmin"

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (uid, email, password_hash) VALUES ($1, $2, $3)`,
		id.UID, id.Email, id.PasswordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	if err := upsertAdmin(ctx, tx, p); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetAdmin loads the admin record for uid. A missing record means the
// identity is not an administrator.
func (s *Storage) GetAdmin(ctx context.Context, uid string) (models.AdminProfile, error) {
	const op = "storage.postgres.GetAdmin"

	var p models.AdminProfile

	err := s.db.QueryRowContext(ctx, `
		SELECT uid, name, email, phone, address, hospital_name, position, department, updated_at
		FROM admins WHERE uid = $1`, uid,
	).Scan(&p.UID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.HospitalName, &p.Position, &p.Department, &p.UpdatedAt)
	if err != nil {
		return models.AdminProfile{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return p, nil
}

func (s *Storage) SaveAdmin(ctx context.Context, p models.AdminProfile) error {
	const op = "storage.postgres.SaveAdmin"

	if err := upsertAdmin(ctx, s.db, p); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertAdmin(ctx context.Context, db execer, p models.AdminProfile) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO admins (uid, name, email, phone, address, hospital_name, position, department, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uid) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			hospital_name = EXCLUDED.hospital_name,
			position = EXCLUDED.position,
			department = EXCLUDED.department,
			updated_at = EXCLUDED.updated_at`,
		p.UID, p.Name, p.Email, p.Phone, p.Address, p.HospitalName, p.Position, p.Department, p.UpdatedAt)
	return err
}

// GetSettings decodes the settings document stored under key into dst.
func (s *Storage) GetSettings(ctx context.Context, key string, dst any) error {
	const op = "storage.postgres.GetSettings"

	var raw []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) SaveSettings(ctx context.Context, key string, value any) error {
	const op = "storage.postgres.SaveSettings"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}
