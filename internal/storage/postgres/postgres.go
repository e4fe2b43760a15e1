package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"hospital-service/pkg/response"
)

const defaultIdleConns = 2

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db.SetMaxIdleConns(defaultIdleConns)

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.postgres.Ping"

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// EnableNetwork restores the idle pool and checks the server answers.
func (s *Storage) EnableNetwork(ctx context.Context) error {
	const op = "storage.postgres.EnableNetwork"

	s.db.SetMaxIdleConns(defaultIdleConns)

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DisableNetwork drops pooled connections so nothing stale is reused once
// the server comes back.
func (s *Storage) DisableNetwork(context.Context) error {
	s.db.SetMaxIdleConns(0)
	return nil
}

func (s *Storage) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// mapError turns driver errors into response sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return response.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", response.ErrConflict, pqErr.Detail)
		case "23503":
			return fmt.Errorf("%w: %s", response.ErrNotFound, pqErr.Detail)
		case "42501":
			return fmt.Errorf("%w: %w", response.ErrPermission, err)
		}
	}

	return err
}
