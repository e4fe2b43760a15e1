// Package outbox queues slot writes made while the store is unreachable and
// replays them once it is back.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hospital-service/internal/clock"
	"hospital-service/internal/models"
)

// Write replaces one doctor's whole slot array.
type Write struct {
	DoctorID string
	Slots    []models.TimeSlot
	QueuedAt time.Time

	seq uint64
}

// Sink applies a replayed write to the store. It should use Current to skip a
// write that was dropped or superseded before it got there.
type Sink interface {
	ApplyQueued(ctx context.Context, w Write) error
}

// Outbox holds at most one pending write per doctor; a newer write for the
// same doctor replaces the queued one but keeps its place in line.
type Outbox struct {
	clock clock.Clock

	mu      sync.Mutex
	seq     uint64
	pending map[string]Write
	order   []string
}

func New(clk clock.Clock) *Outbox {
	return &Outbox{
		clock:   clk,
		pending: make(map[string]Write),
	}
}

func (o *Outbox) Enqueue(doctorID string, slots []models.TimeSlot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++

	if _, ok := o.pending[doctorID]; !ok {
		o.order = append(o.order, doctorID)
	}

	o.pending[doctorID] = Write{
		DoctorID: doctorID,
		Slots:    append([]models.TimeSlot{}, slots...),
		QueuedAt: o.clock.Now(),
		seq:      o.seq,
	}
}

// Pending returns the queued slots for doctorID, if any.
func (o *Outbox) Pending(doctorID string) ([]models.TimeSlot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	w, ok := o.pending[doctorID]
	if !ok {
		return nil, false
	}
	return append([]models.TimeSlot{}, w.Slots...), true
}

// Drop discards the queued write for doctorID, used once a newer array has
// reached the store directly.
func (o *Outbox) Drop(doctorID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.pending[doctorID]; !ok {
		return
	}
	delete(o.pending, doctorID)
	o.order = removeID(o.order, doctorID)
}

// Current reports whether w is still the queued write for its doctor.
func (o *Outbox) Current(w Write) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur, ok := o.pending[w.DoctorID]
	return ok && cur.seq == w.seq
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// Replay pushes queued writes to sink in queue order. It stops at the first
// failure and leaves that write and everything after it queued. A write
// re-queued while its replay was in flight stays queued.
func (o *Outbox) Replay(ctx context.Context, sink Sink) (int, error) {
	const op = "outbox.Replay"

	applied := 0

	for {
		o.mu.Lock()
		if len(o.order) == 0 {
			o.mu.Unlock()
			return applied, nil
		}
		w := o.pending[o.order[0]]
		o.mu.Unlock()

		if err := sink.ApplyQueued(ctx, w); err != nil {
			return applied, fmt.Errorf("%s: doctor %s: %w", op, w.DoctorID, err)
		}

		o.mu.Lock()
		if cur, ok := o.pending[w.DoctorID]; ok && cur.seq == w.seq {
			delete(o.pending, w.DoctorID)
			o.order = removeID(o.order, w.DoctorID)
		} else if ok {
			// Superseded mid-flight: move it to the back so the loop makes progress.
			o.order = append(removeID(o.order, w.DoctorID), w.DoctorID)
		}
		o.mu.Unlock()

		applied++
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
