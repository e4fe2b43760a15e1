package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"hospital-service/api"
	"hospital-service/internal/connectivity"
	"hospital-service/internal/models"
	"hospital-service/pkg/response"
)

func slotRequest() api.TimeSlotRequest {
	return api.TimeSlotRequest{
		Date:        "2025-03-15",
		StartTime:   "09:00 AM",
		EndTime:     "10:30 AM",
		MaxPatients: 3,
		Type:        models.ConsultationInPerson,
	}
}

func TestCreateTimeSlot(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.CreateTimeSlot(context.Background(), "doc-1", slotRequest())
	if err != nil {
		t.Fatal(err)
	}

	if resp.Warning != "" {
		t.Errorf("unexpected warning %q", resp.Warning)
	}
	if resp.Slot.ID == "" || resp.Slot.DoctorID != "doc-1" {
		t.Errorf("slot = %+v", resp.Slot)
	}
	if resp.Slot.TimingSlot != "Morning Session (Ends at 10:30 AM)" {
		t.Errorf("timing = %q", resp.Slot.TimingSlot)
	}
	if resp.Slot.Duration != "1 hr 30 min" {
		t.Errorf("duration = %q", resp.Slot.Duration)
	}
	if !resp.Slot.IsAvailable {
		t.Error("fresh slot should be available")
	}

	stored := h.store.slots["doc-1"]
	if len(stored) != 1 || stored[0].ID != resp.Slot.ID {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestCreateTimeSlot_RejectsBadMeetingLink(t *testing.T) {
	h := newHarness(t)

	req := slotRequest()
	req.Type = models.ConsultationOnline
	req.MeetingLink = "not-a-url"

	_, err := h.svc.CreateTimeSlot(context.Background(), "doc-1", req)
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if h.store.saves("doc-1") != 0 {
		t.Error("invalid slot must not reach the store")
	}

	req.MeetingLink = "https://meet.example.com/x"
	resp, err := h.svc.CreateTimeSlot(context.Background(), "doc-1", req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Slot.MeetingLink != "https://meet.example.com/x" {
		t.Errorf("meeting link = %q", resp.Slot.MeetingLink)
	}
}

func TestUpdateTimeSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := slotRequest()
	req.Type = models.ConsultationOnline
	req.MeetingLink = "https://meet.example.com/x"

	created, err := h.svc.CreateTimeSlot(ctx, "doc-1", req)
	if err != nil {
		t.Fatal(err)
	}

	edit := slotRequest()
	edit.MaxPatients = 2
	edit.BookedPatients = 2
	edit.MeetingLink = "https://meet.example.com/stale"

	resp, err := h.svc.UpdateTimeSlot(ctx, "doc-1", created.Slot.ID, edit)
	if err != nil {
		t.Fatal(err)
	}

	if resp.Slot.ID != created.Slot.ID {
		t.Error("edit must keep the slot id")
	}
	if resp.Slot.IsAvailable {
		t.Error("full slot must not be available")
	}
	if resp.Slot.MeetingLink != "" {
		t.Error("in-person slot must not keep a meeting link")
	}

	if _, err := h.svc.UpdateTimeSlot(ctx, "doc-1", "missing", edit); !errors.Is(err, response.ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestDeleteTimeSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.DeleteTimeSlot(ctx, "doc-1", "missing"); !errors.Is(err, response.ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}

	if _, err := h.svc.DeleteTimeSlot(ctx, "doc-1", created.Slot.ID); err != nil {
		t.Fatal(err)
	}
	if len(h.store.slots["doc-1"]) != 0 {
		t.Error("slot should be gone")
	}
}

func TestListTimeSlots_PrunesPast(t *testing.T) {
	h := newHarness(t)

	h.store.slots["doc-1"] = []models.TimeSlot{
		{ID: "yesterday", Date: "2025-03-13", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 1, IsAvailable: true},
		{ID: "earlier-today", Date: "2025-03-14", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 1, IsAvailable: true},
		{ID: "later-today", Date: "2025-03-14", StartTime: "11:00 AM", EndTime: "12:00 PM", MaxPatients: 1, IsAvailable: true},
		{ID: "tomorrow", Date: "2025-03-15", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 1, IsAvailable: true},
	}

	resp, err := h.svc.ListTimeSlots(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Slots) != 2 || resp.Slots[0].ID != "later-today" || resp.Slots[1].ID != "tomorrow" {
		t.Fatalf("slots = %+v", resp.Slots)
	}
	if len(resp.TimeOptions) == 0 {
		t.Error("time options should be included")
	}
	if got := h.store.slots["doc-1"]; len(got) != 2 {
		t.Errorf("pruned array should be persisted, store has %d", len(got))
	}

	if _, err := h.svc.ListTimeSlots(context.Background(), "doc-1"); err != nil {
		t.Fatal(err)
	}
	if h.store.saves("doc-1") != 1 {
		t.Errorf("nothing to prune on the second read, saves = %d", h.store.saves("doc-1"))
	}
}

func TestRecalculateAndSave_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.store.slots["doc-1"] = []models.TimeSlot{
		{ID: "a", Date: "2025-03-15", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 0, BookedPatients: -2},
		{ID: "b", Date: "2025-03-16", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 2, BookedPatients: 2, IsAvailable: true},
	}

	same := func(list []models.TimeSlot) ([]models.TimeSlot, error) { return list, nil }

	for i := 0; i < 2; i++ {
		if _, _, err := h.svc.mutateSlots(ctx, "doc-1", same); err != nil {
			t.Fatal(err)
		}
	}

	saved := h.store.savedJSON["doc-1"]
	if len(saved) != 2 {
		t.Fatalf("saves = %d", len(saved))
	}
	if !bytes.Equal(saved[0], saved[1]) {
		t.Errorf("arrays differ:\n%s\n%s", saved[0], saved[1])
	}

	for _, s := range h.store.slots["doc-1"] {
		if s.IsAvailable != (s.BookedPatients < s.MaxPatients) {
			t.Errorf("slot %s availability out of sync", s.ID)
		}
	}
}

func TestMutateSlots_VersionConflict(t *testing.T) {
	h := newHarness(t)

	h.store.beforeSave = func(doctorID string) {
		h.store.mu.Lock()
		h.store.versions[doctorID]++
		h.store.mu.Unlock()
	}

	_, err := h.svc.CreateTimeSlot(context.Background(), "doc-1", slotRequest())
	if !errors.Is(err, response.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSlots_OfflineOutbox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.store.slots["doc-1"] = []models.TimeSlot{
		{ID: "a", Date: "2025-03-15", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 1, IsAvailable: true},
	}

	// Warm the cache while online.
	if _, err := h.svc.ListTimeSlots(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}

	h.conn.online.Store(false)

	created, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest())
	if err != nil {
		t.Fatal(err)
	}
	if created.Warning != response.MsgSavedLocally {
		t.Errorf("warning = %q", created.Warning)
	}
	if len(h.store.slots["doc-1"]) != 1 {
		t.Error("store must not be written while offline")
	}

	list, err := h.svc.ListTimeSlots(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if list.Warning != response.MsgOfflineCached || len(list.Slots) != 2 {
		t.Errorf("offline list = %d slots, warning %q", len(list.Slots), list.Warning)
	}

	if health := h.svc.Health(); health.Connected || health.PendingWrites != 1 {
		t.Errorf("health = %+v", health)
	}

	h.conn.online.Store(true)
	h.svc.ReplayOutbox(ctx)

	if got := h.store.slots["doc-1"]; len(got) != 2 {
		t.Fatalf("replayed store has %d slots", len(got))
	}
	if h.svc.Health().PendingWrites != 0 {
		t.Error("outbox should be drained")
	}
}

func TestSlots_OfflineWithoutCache(t *testing.T) {
	h := newHarness(t)
	h.conn.online.Store(false)

	_, err := h.svc.CreateTimeSlot(context.Background(), "doc-1", slotRequest())
	if !errors.Is(err, response.ErrOffline) {
		t.Fatalf("err = %v, want offline", err)
	}
}

func TestSlots_StoreFailureFallsBackToOutbox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}

	h.store.saveSlotsErr = errConnRefused

	resp, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Warning != response.MsgSavedLocally {
		t.Errorf("warning = %q", resp.Warning)
	}

	h.store.saveSlotsErr = nil

	// The next online write builds on the queued array and clears it.
	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}
	if got := len(h.store.slots["doc-1"]); got != 3 {
		t.Errorf("store has %d slots, want 3", got)
	}
	if h.svc.Health().PendingWrites != 0 {
		t.Error("outbox entry should be dropped after a direct save")
	}
}

type upNetwork struct{}

func (upNetwork) EnableNetwork(context.Context) error  { return nil }
func (upNetwork) DisableNetwork(context.Context) error { return nil }
func (upNetwork) Ping(context.Context) error           { return nil }

func TestSlots_QueuedWhileConnectedSyncsOnHealthyProbe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	conn := connectivity.New(log, upNetwork{})
	conn.OnHealthy(h.svc.ReplayOutbox)
	probe := connectivity.NewProbe(log, conn, time.Minute)

	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}

	// The save fails on a dead pooled connection; the connectivity flag stays up.
	h.store.saveSlotsErr = errConnRefused
	resp, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Warning != response.MsgSavedLocally {
		t.Fatalf("warning = %q", resp.Warning)
	}
	h.store.saveSlotsErr = nil

	probe.Check(ctx)

	if got := len(h.store.slots["doc-1"]); got != 2 {
		t.Errorf("store has %d slots, want 2", got)
	}
	if h.svc.Health().PendingWrites != 0 {
		t.Error("outbox should be drained by the healthy probe")
	}
}

func TestListTimeSlots_FlushesQueuedWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}

	h.store.saveSlotsErr = errConnRefused
	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}
	h.store.saveSlotsErr = nil

	list, err := h.svc.ListTimeSlots(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if list.Warning != "" || len(list.Slots) != 2 {
		t.Errorf("list = %d slots, warning %q", len(list.Slots), list.Warning)
	}
	if got := len(h.store.slots["doc-1"]); got != 2 {
		t.Errorf("store has %d slots, want 2", got)
	}
	if h.svc.Health().PendingWrites != 0 {
		t.Error("outbox should be drained once the store answers")
	}
}

func TestReplayOutbox_HoldsSlotLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.store.slots["doc-1"] = []models.TimeSlot{
		{ID: "a", Date: "2025-03-15", StartTime: "09:00 AM", EndTime: "10:00 AM", MaxPatients: 1, IsAvailable: true},
	}
	if _, err := h.svc.ListTimeSlots(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}

	h.conn.online.Store(false)
	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}
	h.conn.online.Store(true)

	// A direct edit racing the replay must wait for the lock instead of being
	// overwritten by the queued array.
	var raceErr error
	h.store.beforeSave = func(doctorID string) {
		h.store.beforeSave = nil
		_, raceErr = h.svc.CreateTimeSlot(ctx, doctorID, slotRequest())
	}

	h.svc.ReplayOutbox(ctx)

	if !errors.Is(raceErr, response.ErrLocked) {
		t.Fatalf("racing edit err = %v, want locked", raceErr)
	}
	if got := len(h.store.slots["doc-1"]); got != 2 {
		t.Fatalf("store has %d slots, want the 2 replayed", got)
	}
	if h.svc.Health().PendingWrites != 0 {
		t.Error("outbox should be drained")
	}

	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}
	if got := len(h.store.slots["doc-1"]); got != 3 {
		t.Errorf("store has %d slots after the retried edit, want 3", got)
	}
}

func TestReplayOutbox_SkipsWriteSupersededByDirectSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}

	h.store.saveSlotsErr = errConnRefused
	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}
	h.store.saveSlotsErr = nil

	if _, err := h.svc.CreateTimeSlot(ctx, "doc-1", slotRequest()); err != nil {
		t.Fatal(err)
	}
	saves := h.store.saves("doc-1")

	h.svc.ReplayOutbox(ctx)

	if h.store.saves("doc-1") != saves {
		t.Error("replay must not write once a direct save cleared the queue")
	}
	if got := len(h.store.slots["doc-1"]); got != 3 {
		t.Errorf("store has %d slots, want 3", got)
	}
}
