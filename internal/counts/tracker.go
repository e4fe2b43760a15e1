package counts

import (
	"context"
	"log/slog"
	"sync"

	"hospital-service/internal/clock"
	"hospital-service/internal/models"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

const MsgLoadFailed = "Failed to load appointments. Please try again."

// Source delivers a doctor's appointments once and as a live feed. Each
// onChange call carries the complete current list.
type Source interface {
	ListAppointments(ctx context.Context, doctorID string) ([]models.Appointment, error)
	SubscribeAppointments(ctx context.Context, doctorID string, onChange func([]models.Appointment), onError func(error)) (func(), error)
}

type Connectivity interface {
	IsConnected() bool
}

type Snapshot struct {
	Appointments []models.Appointment `json:"appointments"`
	Counts       Counts               `json:"counts"`
	Error        string               `json:"error,omitempty"`
}

// Tracker holds one doctor's appointment list and the counts derived from
// it. Every delivered list replaces the held one; the last delivery wins.
type Tracker struct {
	log   *slog.Logger
	src   Source
	conn  Connectivity
	clock clock.Clock

	mu          sync.Mutex
	list        []models.Appointment
	counts      Counts
	err         string
	closed      bool
	unsubscribe func()
	listeners   []func(Snapshot)
}

func NewTracker(log *slog.Logger, src Source, conn Connectivity, clk clock.Clock) *Tracker {
	return &Tracker{
		log:   log,
		src:   src,
		conn:  conn,
		clock: clk,
		list:  []models.Appointment{},
	}
}

// OnChange registers fn to receive every recomputed snapshot.
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Start loads the doctor's appointments and subscribes to changes. An empty
// doctorID yields zero counts and no subscription.
func (t *Tracker) Start(ctx context.Context, doctorID string) {
	const op = "counts.Tracker.Start"

	log := t.log.With(
		slog.String("op", op),
		slog.String("doctor_id", doctorID),
	)

	if doctorID == "" {
		t.replace([]models.Appointment{}, "")
		return
	}

	if !t.conn.IsConnected() {
		t.replace([]models.Appointment{}, response.MsgNoConnection)
		return
	}

	unsubscribe, err := t.src.SubscribeAppointments(ctx, doctorID,
		func(list []models.Appointment) {
			t.replace(list, "")
		},
		func(err error) {
			log.Error("live appointment feed failed", sl.Err(err))
		},
	)
	if err != nil {
		log.Error("failed to subscribe to appointments", sl.Err(err))
	} else {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			unsubscribe()
		} else {
			t.unsubscribe = unsubscribe
			t.mu.Unlock()
		}
	}

	list, err := t.src.ListAppointments(ctx, doctorID)
	if err != nil {
		log.Error("failed to load appointments", sl.Err(err))
		t.replace([]models.Appointment{}, MsgLoadFailed)
		return
	}

	t.replace(list, "")
}

func (t *Tracker) replace(list []models.Appointment, errMsg string) {
	if list == nil {
		list = []models.Appointment{}
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.list = list
	t.err = errMsg
	t.counts = Derive(list, t.clock.Now())

	snap := t.snapshotLocked()
	listeners := append([]func(Snapshot){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Appointments: append([]models.Appointment{}, t.list...),
		Counts:       t.counts,
		Error:        t.err,
	}
}

// Close drops the live subscription. Deliveries after Close are discarded.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.listeners = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
