package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type DoctorDeleter interface {
	DeleteDoctor(ctx context.Context, id string) error
}

func New(log *slog.Logger, deleter DoctorDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.doctors.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		err := deleter.DeleteDoctor(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "doctor not found"))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgNoConnection))
			return
		}

		if err != nil {
			log.Error("Failed to delete doctor", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to delete doctor. Please try again."))
			return
		}

		log.Info("Doctor deleted", slog.String("doctor_id", id))

		w.WriteHeader(http.StatusNoContent)
	}
}
