package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type DoctorLister interface {
	ListDoctors(ctx context.Context, search string) (api.DoctorListResponse, error)
}

// New lists doctors, optionally filtered by ?search= on name, specialization,
// email or doctor id.
func New(log *slog.Logger, lister DoctorLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.doctors.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		resp, err := lister.ListDoctors(r.Context(), r.URL.Query().Get("search"))

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgNoConnection))
			return
		}

		if err != nil {
			log.Error("Failed to list doctors", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list doctors"))
			return
		}

		log.Info("Doctors retrieved", slog.Int("count", len(resp.Doctors)))

		render.JSON(w, r, resp)
	}
}
