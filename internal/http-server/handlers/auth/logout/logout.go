package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

// RevokeFunc ends the session behind a token.
type RevokeFunc func(ctx context.Context, token string) error

// New ends the caller's session. Unknown tokens still get 204.
func New(log *slog.Logger, revoke RevokeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := revoke(r.Context(), mwAuth.Token(r)); err != nil {
			log.Error("Failed to revoke session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to sign out"))
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
