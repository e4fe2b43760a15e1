package analytics

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

type AnalyticsGetter interface {
	PatientAnalytics(ctx context.Context) (api.AnalyticsResponse, error)
}

func New(log *slog.Logger, getter AnalyticsGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.analytics.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		resp, err := getter.PatientAnalytics(r.Context())
		if err != nil {
			log.Error("Failed to load analytics", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load analytics"))
			return
		}

		render.JSON(w, r, resp)
	}
}
