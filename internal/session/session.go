// Package session issues and restores signed-in sessions for one portal.
// Each portal (admin, doctor) gets its own Manager and key namespace.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hospital-service/internal/clock"
	"hospital-service/pkg/response"
)

const (
	Admin  = "admin"
	Doctor = "doctor"
)

// Principal is the signed-in identity a session carries. Doctor-only fields
// stay empty for administrators.
type Principal struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	DoctorID       string `json:"doctorId,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	ProfileImage   string `json:"profileImage,omitempty"`
	Status         string `json:"status,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Principal Principal `json:"principal"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

type Manager struct {
	kind   string
	secret []byte
	ttl    time.Duration
	store  Store
	clock  clock.Clock
}

func NewManager(kind string, secret []byte, ttl time.Duration, store Store, clk clock.Clock) *Manager {
	return &Manager{
		kind:   kind,
		secret: secret,
		ttl:    ttl,
		store:  store,
		clock:  clk,
	}
}

func (m *Manager) Kind() string {
	return m.kind
}

func (m *Manager) key(id string) string {
	return fmt.Sprintf("session:%s:%s", m.kind, id)
}

// Issue stores a new session for p and returns its bearer token.
func (m *Manager) Issue(ctx context.Context, p Principal) (string, Session, error) {
	const op = "session.Manager.Issue"

	now := m.clock.Now()

	s := Session{
		ID:        uuid.NewString(),
		Kind:      m.kind,
		Principal: p,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.save(ctx, s); err != nil {
		return "", Session{}, fmt.Errorf("%s: %w", op, err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   p.UID,
			Audience:  jwt.ClaimStrings{m.kind},
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Kind: m.kind,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		_ = m.store.Delete(ctx, m.key(s.ID))
		return "", Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, s, nil
}

// Resolve verifies token and loads the session it names. Any failure is
// response.ErrUnauthorized.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	const op = "session.Manager.Resolve"

	claims, err := m.parse(token)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w: %w", op, response.ErrUnauthorized, err)
	}

	data, err := m.store.Load(ctx, m.key(claims.ID))
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return Session{}, fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// Revoke ends the session behind token. Unknown or expired tokens are not an
// error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	const op = "session.Manager.Revoke"

	claims, err := m.parse(token)
	if err != nil {
		return nil
	}

	if err := m.store.Delete(ctx, m.key(claims.ID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Refresh replaces the principal stored for an existing session, keeping its
// expiry.
func (m *Manager) Refresh(ctx context.Context, s Session, p Principal) (Session, error) {
	const op = "session.Manager.Refresh"

	if s.Kind != m.kind {
		return Session{}, fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	s.Principal = p

	if err := m.save(ctx, s); err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (m *Manager) save(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(m.clock.Now())
	if ttl <= 0 {
		return response.ErrUnauthorized
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return m.store.Save(ctx, m.key(s.ID), data, ttl)
}

func (m *Manager) parse(token string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(m.kind),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return nil, err
	}

	if claims.Kind != m.kind || claims.ID == "" {
		return nil, errors.New("token issued for another portal")
	}

	return claims, nil
}
