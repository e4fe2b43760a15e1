package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type TimeSlotDeleter interface {
	DeleteTimeSlot(ctx context.Context, doctorID, slotID string) (string, error)
}

// New removes a slot. A queued offline delete answers 200 with a warning,
// otherwise 204.
func New(log *slog.Logger, deleter TimeSlotDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.time_slots.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		sess, ok := mwAuth.SessionFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "not signed in"))
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		warning, err := deleter.DeleteTimeSlot(r.Context(), sess.Principal.UID, id)

		if errors.Is(err, response.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "time slot not found"))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Warn("slot array is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "Time slots are being updated elsewhere. Please try again."))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Warn("slot array changed concurrently")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "Time slots changed. Reload and try again."))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgNoConnection))
			return
		}

		if err != nil {
			log.Error("Failed to delete time slot", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to delete time slot. Please try again."))
			return
		}

		log.Info("Time slot deleted", slog.String("slot_id", id))

		if warning == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		render.JSON(w, r, api.WarningResponse{Warning: warning})
	}
}
