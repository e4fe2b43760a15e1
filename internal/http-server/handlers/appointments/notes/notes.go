package notes

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
	"hospital-service/internal/models"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type NotesUpdater interface {
	UpdateAppointmentNotes(ctx context.Context, doctorID, id, notes string) (models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment models.Appointment `json:"appointment"`
}

func New(log *slog.Logger, updater NotesUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.notes.New"

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

		var req api.NotesRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if err := api.Validate(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), response.ValidationMessage(err)))
			return
		}

		id := chi.URLParam(r, "id")

		appt, err := updater.UpdateAppointmentNotes(r.Context(), sess.Principal.UID, id, req.Notes)

		if errors.Is(err, response.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgNoConnection))
			return
		}

		if err != nil {
			log.Error("Failed to save notes", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to save notes."))
			return
		}

		log.Info("Appointment notes saved", slog.String("appointment_id", id))

		render.JSON(w, r, Response{Appointment: appt})
	}
}
