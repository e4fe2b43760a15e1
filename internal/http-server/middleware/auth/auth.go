// Package auth guards portal routes with a bearer session token.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/internal/session"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type ctxKey struct{}

type SessionResolver func(ctx context.Context, token string) (session.Session, error)

// New rejects requests without a session that resolve accepts and stores the
// session in the request context.
func New(log *slog.Logger, resolve SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		log := log.With(
			slog.String("component", "middleware/auth"),
		)

		fn := func(w http.ResponseWriter, r *http.Request) {
			token := Token(r)
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "missing session token"))
				return
			}

			sess, err := resolve(r.Context(), token)
			if errors.Is(err, response.ErrUnauthorized) {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "session expired or invalid"))
				return
			}
			if err != nil {
				log.Error("failed to resolve session",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to resolve session"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		}

		return http.HandlerFunc(fn)
	}
}

// Token reads the bearer token from the Authorization header, falling back to
// the token query parameter for websocket upgrades.
func Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(session.Session)
	return s, ok
}
