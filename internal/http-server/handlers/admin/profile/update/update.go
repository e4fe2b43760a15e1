package update

import (
	"context"
	"errors"
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

type ProfileUpdater interface {
	UpdateAdminProfile(ctx context.Context, sess session.Session, req api.AdminProfileRequest) (api.AdminProfileResponse, error)
}

func New(log *slog.Logger, updater ProfileUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.profile.update.New"

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

		var req api.AdminProfileRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		resp, err := updater.UpdateAdminProfile(r.Context(), sess, req)

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
			log.Error("Failed to update profile", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to update profile. Please try again."))
			return
		}

		log.Info("admin profile updated", slog.String("uid", sess.Principal.UID))

		render.JSON(w, r, resp)
	}
}
