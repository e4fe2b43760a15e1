package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hospital-service/internal/models"
	"hospital-service/pkg/response"
)

func (s *Storage) GetSlots(ctx context.Context, doctorID string) (models.SlotList, error) {
	const op = "storage.postgres.GetSlots"

	var (
		raw  []byte
		list = models.SlotList{DoctorID: doctorID}
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT time_slots, slots_version FROM doctors WHERE id = $1`, doctorID,
	).Scan(&raw, &list.Version)
	if err != nil {
		return models.SlotList{}, fmt.Errorf("%s: %w", op, mapError(err))
	}

	if err := json.Unmarshal(raw, &list.Slots); err != nil {
		return models.SlotList{}, fmt.Errorf("%s: decode slots: %w", op, err)
	}
	if list.Slots == nil {
		list.Slots = []models.TimeSlot{}
	}

	return list, nil
}

// SaveSlots replaces the slot array if it is still at version and returns the
// new version. A moved version is response.ErrConflict.
func (s *Storage) SaveSlots(ctx context.Context, doctorID string, slots []models.TimeSlot, version int64) (int64, error) {
	const op = "storage.postgres.SaveSlots"

	raw, err := marshalSlots(slots)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var next int64
	err = s.db.QueryRowContext(ctx, `
		UPDATE doctors
		SET time_slots = $2, slots_version = slots_version + 1, updated_at = now()
		WHERE id = $1 AND slots_version = $3
		RETURNING slots_version`,
		doctorID, raw, version,
	).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, doctorID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return 0, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return 0, fmt.Errorf("%s: slots version %d is stale: %w", op, version, response.ErrConflict)
}

func marshalSlots(slots []models.TimeSlot) ([]byte, error) {
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	return json.Marshal(slots)
}
