package update

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

type SettingsUpdater interface {
	UpdateHospitalSettings(ctx context.Context, req api.SettingsRequest) (api.SettingsResponse, error)
}

func New(log *slog.Logger, updater SettingsUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.settings.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.SettingsRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		resp, err := updater.UpdateHospitalSettings(r.Context(), req)

		if errors.Is(err, response.ErrValidation) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), response.ValidationMessage(err)))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgConnectionLost))
			return
		}

		if err != nil {
			log.Error("Failed to save settings", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to save settings. Please try again."))
			return
		}

		log.Info("hospital settings updated")

		render.JSON(w, r, resp)
	}
}
