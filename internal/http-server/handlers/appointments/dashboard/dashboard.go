package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type DashboardGetter interface {
	DoctorDashboard(ctx context.Context, sess session.Session) (api.DoctorDashboardResponse, error)
}

func New(log *slog.Logger, getter DashboardGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.dashboard.New"

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

		resp, err := getter.DoctorDashboard(r.Context(), sess)
		if err != nil {
			log.Error("Failed to load dashboard", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load dashboard"))
			return
		}

		render.JSON(w, r, resp)
	}
}
