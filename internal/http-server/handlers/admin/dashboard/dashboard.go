package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type StatsGetter interface {
	AdminDashboard(ctx context.Context) (api.DashboardResponse, error)
}

func New(log *slog.Logger, getter StatsGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.dashboard.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		resp, err := getter.AdminDashboard(r.Context())
		if err != nil {
			log.Error("Failed to load dashboard", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load dashboard"))
			return
		}

		if resp.Warning != "" {
			log.Warn("dashboard served from sample data")
		}

		render.JSON(w, r, resp)
	}
}
