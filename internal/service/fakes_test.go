package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hospital-service/internal/clock"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

type fakeStore struct {
	mu sync.Mutex

	doctors      map[string]models.Doctor
	slots        map[string][]models.TimeSlot
	versions     map[string]int64
	savedJSON    map[string][][]byte
	appointments map[string]models.Appointment
	identities   map[string]models.Identity
	admins       map[string]models.AdminProfile
	settings     map[string][]byte

	getSlotsErr  error
	saveSlotsErr error
	adminErr     error
	statsErr     error
	// beforeSave runs inside SaveSlots before the version check.
	beforeSave func(doctorID string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		doctors:      map[string]models.Doctor{},
		slots:        map[string][]models.TimeSlot{},
		versions:     map[string]int64{},
		savedJSON:    map[string][][]byte{},
		appointments: map[string]models.Appointment{},
		identities:   map[string]models.Identity{},
		admins:       map[string]models.AdminProfile{},
		settings:     map[string][]byte{},
	}
}

func (f *fakeStore) ListDoctors(_ context.Context, search string) ([]models.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Doctor{}
	for _, d := range f.doctors {
		if search == "" || strings.Contains(strings.ToLower(d.Name), strings.ToLower(search)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) GetDoctor(_ context.Context, id string) (models.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return models.Doctor{}, response.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) GetDoctorByCode(_ context.Context, code string) (models.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.doctors {
		if d.DoctorID == code {
			return d, nil
		}
	}
	return models.Doctor{}, response.ErrNotFound
}

func (f *fakeStore) CreateDoctor(_ context.Context, d models.Doctor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.doctors {
		if cur.DoctorID == d.DoctorID {
			return response.ErrConflict
		}
	}
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeStore) UpdateDoctor(_ context.Context, d models.Doctor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.doctors[d.ID]
	if !ok {
		return response.ErrNotFound
	}
	if d.PasswordHash == "" {
		d.PasswordHash = cur.PasswordHash
	}
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeStore) DeleteDoctor(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.doctors[id]; !ok {
		return response.ErrNotFound
	}
	delete(f.doctors, id)
	return nil
}

func (f *fakeStore) SetDoctorPassword(_ context.Context, code, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, d := range f.doctors {
		if d.DoctorID == code {
			d.PasswordHash = hash
			f.doctors[id] = d
			return nil
		}
	}
	return response.ErrNotFound
}

func (f *fakeStore) GetSlots(_ context.Context, doctorID string) (models.SlotList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getSlotsErr != nil {
		return models.SlotList{}, f.getSlotsErr
	}
	return models.SlotList{
		DoctorID: doctorID,
		Slots:    append([]models.TimeSlot{}, f.slots[doctorID]...),
		Version:  f.versions[doctorID],
	}, nil
}

func (f *fakeStore) SaveSlots(_ context.Context, doctorID string, list []models.TimeSlot, version int64) (int64, error) {
	if f.beforeSave != nil {
		f.beforeSave(doctorID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveSlotsErr != nil {
		return 0, f.saveSlotsErr
	}
	if f.versions[doctorID] != version {
		return 0, response.ErrConflict
	}
	f.store(doctorID, list)
	return f.versions[doctorID], nil
}

func (f *fakeStore) store(doctorID string, list []models.TimeSlot) {
	data, _ := json.Marshal(list)
	f.savedJSON[doctorID] = append(f.savedJSON[doctorID], data)
	f.slots[doctorID] = append([]models.TimeSlot{}, list...)
	f.versions[doctorID]++
}

func (f *fakeStore) saves(doctorID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.savedJSON[doctorID])
}

func (f *fakeStore) ListAppointments(_ context.Context, flt models.AppointmentFilter) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range f.appointments {
		if flt.DoctorID != "" && a.DoctorID != flt.DoctorID {
			continue
		}
		if len(flt.Types) > 0 && a.Type != flt.Types[0] {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) GetAppointment(_ context.Context, id string) (models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return models.Appointment{}, response.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) UpdateAppointmentStatus(_ context.Context, doctorID, id string, status models.AppointmentStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.DoctorID != doctorID {
		return response.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = &at
	f.appointments[id] = a
	return nil
}

func (f *fakeStore) UpdateAppointmentNotes(_ context.Context, doctorID, id, notes string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.DoctorID != doctorID {
		return response.ErrNotFound
	}
	a.Notes = notes
	a.UpdatedAt = &at
	f.appointments[id] = a
	return nil
}

func (f *fakeStore) DashboardStats(context.Context) (models.DashboardStats, error) {
	if f.statsErr != nil {
		return models.DashboardStats{}, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := models.DashboardStats{TotalDoctors: len(f.doctors), TotalAppointments: len(f.appointments)}
	for _, a := range f.appointments {
		if a.Type == models.ConsultationOnline {
			st.OnlineConsultations++
		}
		if a.Status == models.StatusCompleted {
			st.CompletedAppointments++
		}
	}
	return st, nil
}

func (f *fakeStore) PatientAnalytics(context.Context, time.Time, time.Time) (models.PatientAnalytics, error) {
	if f.statsErr != nil {
		return models.PatientAnalytics{}, f.statsErr
	}
	return models.PatientAnalytics{}, nil
}

func (f *fakeStore) GetIdentityByEmail(_ context.Context, email string) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.identities[email]
	if !ok {
		return models.Identity{}, response.ErrNotFound
	}
	return id, nil
}

func (f *fakeStore) CreateAdmin(_ context.Context, id models.Identity, p models.AdminProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.identities[id.Email]; ok {
		return response.ErrConflict
	}
	f.identities[id.Email] = id
	f.admins[id.UID] = p
	return nil
}

func (f *fakeStore) GetAdmin(_ context.Context, uid string) (models.AdminProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return models.AdminProfile{}, f.adminErr
	}
	p, ok := f.admins[uid]
	if !ok {
		return models.AdminProfile{}, response.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) SaveAdmin(_ context.Context, p models.AdminProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[p.UID] = p
	return nil
}

func (f *fakeStore) GetSettings(_ context.Context, key string, dst any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.settings[key]
	if !ok {
		return response.ErrNotFound
	}
	return json.Unmarshal(data, dst)
}

func (f *fakeStore) SaveSettings(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = data
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
	seq  int
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return "", response.ErrLocked
	}
	l.seq++
	token := strconv.Itoa(l.seq)
	l.held[key] = token
	return token, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return errors.New("lock not held")
	}
	delete(l.held, key)
	return nil
}

type fakeConn struct {
	online atomic.Bool
}

func newFakeConn() *fakeConn {
	c := &fakeConn{}
	c.online.Store(true)
	return c
}

func (c *fakeConn) IsConnected() bool { return c.online.Load() }

type memSessionStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memSessionStore) Save(_ context.Context, key string, data []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.data[key] = data
	return nil
}

func (s *memSessionStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, session.ErrNoRecord
	}
	return d, nil
}

func (s *memSessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memSessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

type fakeBlobs struct {
	puts map[string][]byte
}

func (b *fakeBlobs) Put(_ context.Context, key string, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if b.puts == nil {
		b.puts = map[string][]byte{}
	}
	b.puts[key] = data
	return "http://blobs.test/" + key, nil
}

type harness struct {
	svc            *Service
	store          *fakeStore
	conn           *fakeConn
	clock          *clock.Managed
	blobs          *fakeBlobs
	adminSessions  *memSessionStore
	doctorSessions *memSessionStore
}

// testNow is a Friday morning in UTC.
var testNow = time.Date(2025, 3, 14, 10, 15, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:          newFakeStore(),
		conn:           newFakeConn(),
		clock:          clock.NewManaged(testNow),
		blobs:          &fakeBlobs{},
		adminSessions:  &memSessionStore{},
		doctorSessions: &memSessionStore{},
	}

	secret := []byte("test-secret")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h.svc = NewService(log, Deps{
		Store:          h.store,
		Locker:         &fakeLocker{},
		Conn:           h.conn,
		AdminSessions:  session.NewManager(session.Admin, secret, time.Hour, h.adminSessions, h.clock),
		DoctorSessions: session.NewManager(session.Doctor, secret, time.Hour, h.doctorSessions, h.clock),
		Blobs:          h.blobs,
		Clock:          h.clock,
	}, Options{MeetingBaseURL: "https://meet.example.com"})

	return h
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
