package get

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

type ProfileGetter interface {
	AdminProfile(ctx context.Context, sess session.Session) (api.AdminProfileResponse, error)
}

func New(log *slog.Logger, getter ProfileGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.profile.get.New"

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

		resp, err := getter.AdminProfile(r.Context(), sess)

		if errors.Is(err, response.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "profile not found"))
			return
		}

		if err != nil {
			log.Error("Failed to load profile", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load profile"))
			return
		}

		render.JSON(w, r, resp)
	}
}
