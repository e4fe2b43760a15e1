package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

// ListFunc loads one doctor's appointments with their counts.
type ListFunc func(ctx context.Context, doctorID string) (api.AppointmentsResponse, error)

// New serves the signed-in doctor's appointments through list. Load failures
// arrive as a warning in the body, not as an error status.
func New(log *slog.Logger, list ListFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.New"

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

		resp, err := list(r.Context(), sess.Principal.UID)
		if err != nil {
			log.Error("Failed to list appointments", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list appointments"))
			return
		}

		if resp.Warning != "" {
			log.Warn("appointments unavailable", slog.String("warning", resp.Warning))
		}

		render.JSON(w, r, resp)
	}
}
