package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"hospital-service/api"
	"hospital-service/internal/lock"
	"hospital-service/internal/models"
	"hospital-service/internal/outbox"
	"hospital-service/internal/slots"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

// slotMutation edits a doctor's slot array in memory and returns the new one.
type slotMutation func(list []models.TimeSlot) ([]models.TimeSlot, error)

// ListTimeSlots returns the doctor's upcoming slots. Slots that already started
// are dropped and the pruned array is written back.
func (s *Service) ListTimeSlots(ctx context.Context, doctorID string) (api.TimeSlotsResponse, error) {
	const op = "service.ListTimeSlots"

	log := s.log.With(slog.String("op", op), slog.String("doctor_id", doctorID))

	if !s.connected() {
		return s.cachedSlots(doctorID), nil
	}

	list, err := s.store.GetSlots(ctx, doctorID)
	if err != nil {
		if IsOffline(err) {
			log.Warn("store unreachable, serving cached slots", sl.Err(err))
			return s.cachedSlots(doctorID), nil
		}
		return api.TimeSlotsResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	current := list.Slots
	pending, queued := s.outbox.Pending(doctorID)
	if queued {
		current = pending
	}

	kept, removed := slots.PrunePast(current, s.clock.Now())
	resp := api.TimeSlotsResponse{TimeOptions: slots.TimeOptions()}

	// A queued array is flushed as soon as the store answers again.
	if len(removed) > 0 || queued {
		log.Info("persisting slots", slog.Int("removed", len(removed)), slog.Bool("queued", queued))

		saved, warning, err := s.mutateSlots(ctx, doctorID, func(cur []models.TimeSlot) ([]models.TimeSlot, error) {
			k, _ := slots.PrunePast(cur, s.clock.Now())
			return k, nil
		})
		if err != nil {
			log.Error("failed to persist pruned slots", sl.Err(err))
		} else {
			kept = saved
			resp.Warning = warning
		}
	} else {
		s.cache.Put(doctorID, kept)
	}

	resp.Slots = slotViews(kept)

	return resp, nil
}

func (s *Service) CreateTimeSlot(ctx context.Context, doctorID string, req api.TimeSlotRequest) (api.TimeSlotResponse, error) {
	const op = "service.CreateTimeSlot"

	in := slotInput(req)
	if err := slots.Validate(in); err != nil {
		return api.TimeSlotResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	slot := buildSlot(uuid.NewString(), doctorID, in)

	_, warning, err := s.mutateSlots(ctx, doctorID, func(list []models.TimeSlot) ([]models.TimeSlot, error) {
		return append(list, slot), nil
	})
	if err != nil {
		return api.TimeSlotResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return api.TimeSlotResponse{Slot: slotView(slots.Recalculate([]models.TimeSlot{slot})[0]), Warning: warning}, nil
}

func (s *Service) UpdateTimeSlot(ctx context.Context, doctorID, slotID string, req api.TimeSlotRequest) (api.TimeSlotResponse, error) {
	const op = "service.UpdateTimeSlot"

	in := slotInput(req)
	if err := slots.Validate(in); err != nil {
		return api.TimeSlotResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	updated := buildSlot(slotID, doctorID, in)
	if updated.Type != models.ConsultationOnline {
		updated.MeetingLink = ""
	}

	_, warning, err := s.mutateSlots(ctx, doctorID, func(list []models.TimeSlot) ([]models.TimeSlot, error) {
		i := slots.Find(list, slotID)
		if i < 0 {
			return nil, response.ErrNotFound
		}

		out := append([]models.TimeSlot{}, list...)
		out[i] = updated

		return out, nil
	})
	if err != nil {
		return api.TimeSlotResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return api.TimeSlotResponse{Slot: slotView(slots.Recalculate([]models.TimeSlot{updated})[0]), Warning: warning}, nil
}

func (s *Service) DeleteTimeSlot(ctx context.Context, doctorID, slotID string) (string, error) {
	const op = "service.DeleteTimeSlot"

	_, warning, err := s.mutateSlots(ctx, doctorID, func(list []models.TimeSlot) ([]models.TimeSlot, error) {
		i := slots.Find(list, slotID)
		if i < 0 {
			return nil, response.ErrNotFound
		}

		out := make([]models.TimeSlot, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)

		return out, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return warning, nil
}

// ReplayOutbox pushes slot writes queued while offline. It runs on reconnect
// and after every healthy probe, and does nothing when the outbox is empty.
func (s *Service) ReplayOutbox(ctx context.Context) {
	const op = "service.ReplayOutbox"

	log := s.log.With(slog.String("op", op))

	if s.outbox.Len() == 0 {
		return
	}

	n, err := s.outbox.Replay(ctx, replaySink{s})
	if err != nil {
		log.Error("outbox replay stopped", slog.Int("applied", n), slog.Int("left", s.outbox.Len()), sl.Err(err))
		return
	}

	log.Info("outbox replayed", slog.Int("applied", n))
}

type replaySink struct {
	s *Service
}

// ApplyQueued saves a queued array under the doctor's slot lock with the
// version read under that lock. A write that was dropped or superseded while
// waiting for the lock is skipped.
func (r replaySink) ApplyQueued(ctx context.Context, w outbox.Write) error {
	const op = "service.replaySink.ApplyQueued"

	s := r.s
	key := lock.SlotKey(w.DoctorID)

	token, err := s.locker.Acquire(ctx, key, s.opts.SlotLockTTL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("failed to release slot lock", slog.String("op", op), sl.Err(err))
		}
	}()

	if !s.outbox.Current(w) {
		return nil
	}

	current, err := s.store.GetSlots(ctx, w.DoctorID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.store.SaveSlots(ctx, w.DoctorID, w.Slots, current.Version); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Put(w.DoctorID, w.Slots)

	return nil
}

// mutateSlots runs fn against the doctor's current array and persists the
// recalculated result as one conditional write under the per-doctor lock.
// When the store is unreachable the result goes to the outbox instead and the
// returned warning says so.
func (s *Service) mutateSlots(ctx context.Context, doctorID string, fn slotMutation) ([]models.TimeSlot, string, error) {
	const op = "service.mutateSlots"

	log := s.log.With(slog.String("op", op), slog.String("doctor_id", doctorID))

	if !s.connected() {
		return s.mutateOffline(doctorID, fn)
	}

	token, err := s.locker.Acquire(ctx, lock.SlotKey(doctorID), s.opts.SlotLockTTL)
	if err != nil {
		if errors.Is(err, response.ErrLocked) {
			log.Warn("slots are being edited elsewhere")
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}
		if IsOffline(err) {
			log.Warn("lock unavailable, queueing locally", sl.Err(err))
			return s.mutateOffline(doctorID, fn)
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lock.SlotKey(doctorID), token); err != nil {
			log.Warn("failed to release slot lock", sl.Err(err))
		}
	}()

	current, err := s.store.GetSlots(ctx, doctorID)
	if err != nil {
		if IsOffline(err) {
			log.Warn("store unreachable, queueing locally", sl.Err(err))
			return s.mutateOffline(doctorID, fn)
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	base := current.Slots
	if pending, ok := s.outbox.Pending(doctorID); ok {
		base = pending
	}

	next, err := fn(append([]models.TimeSlot{}, base...))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	next = slots.Recalculate(next)

	if _, err := s.store.SaveSlots(ctx, doctorID, next, current.Version); err != nil {
		if IsOffline(err) {
			log.Warn("save failed, queueing locally", sl.Err(err))
			s.queue(doctorID, next)
			return next, response.MsgSavedLocally, nil
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Put(doctorID, next)
	s.outbox.Drop(doctorID)

	return next, "", nil
}

func (s *Service) mutateOffline(doctorID string, fn slotMutation) ([]models.TimeSlot, string, error) {
	const op = "service.mutateOffline"

	base, ok := s.outbox.Pending(doctorID)
	if !ok {
		base, ok = s.cache.Get(doctorID)
	}
	if !ok {
		// A queued write replaces the whole array, so it needs a known base.
		return nil, "", fmt.Errorf("%s: %w", op, response.ErrOffline)
	}

	next, err := fn(base)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	next = slots.Recalculate(next)
	s.queue(doctorID, next)

	return next, response.MsgSavedLocally, nil
}

func (s *Service) queue(doctorID string, list []models.TimeSlot) {
	s.outbox.Enqueue(doctorID, list)
	s.cache.Put(doctorID, list)
}

func (s *Service) cachedSlots(doctorID string) api.TimeSlotsResponse {
	list, ok := s.outbox.Pending(doctorID)
	if !ok {
		list, _ = s.cache.Get(doctorID)
	}

	kept, _ := slots.PrunePast(list, s.clock.Now())

	return api.TimeSlotsResponse{
		Slots:       slotViews(kept),
		TimeOptions: slots.TimeOptions(),
		Warning:     response.MsgOfflineCached,
	}
}

func slotInput(req api.TimeSlotRequest) slots.Input {
	in := slots.Input{
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TimingSlot:     req.TimingSlot,
		MaxPatients:    req.MaxPatients,
		BookedPatients: req.BookedPatients,
		Type:           req.Type,
		MeetingLink:    req.MeetingLink,
	}
	if in.Type == "" {
		in.Type = models.ConsultationInPerson
	}
	return in
}

func buildSlot(id, doctorID string, in slots.Input) models.TimeSlot {
	timing := in.TimingSlot
	if timing == "" {
		timing = slots.TimingSlot(in.EndTime)
	}

	return models.TimeSlot{
		ID:             id,
		DoctorID:       doctorID,
		Date:           in.Date,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		TimingSlot:     timing,
		MaxPatients:    in.MaxPatients,
		BookedPatients: in.BookedPatients,
		Type:           in.Type,
		MeetingLink:    in.MeetingLink,
	}
}

func slotView(slot models.TimeSlot) api.TimeSlot {
	d, _ := slots.Duration(slot.StartTime, slot.EndTime)
	return api.TimeSlot{TimeSlot: slot, Duration: d}
}

func slotViews(list []models.TimeSlot) []api.TimeSlot {
	out := make([]api.TimeSlot, 0, len(list))
	for _, slot := range list {
		out = append(out, slotView(slot))
	}
	return out
}
