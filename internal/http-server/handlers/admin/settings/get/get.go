package get

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

type SettingsGetter interface {
	HospitalSettings(ctx context.Context) (api.SettingsResponse, error)
}

func New(log *slog.Logger, getter SettingsGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.settings.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		resp, err := getter.HospitalSettings(r.Context())
		if err != nil {
			log.Error("Failed to load settings", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load settings"))
			return
		}

		render.JSON(w, r, resp)
	}
}
