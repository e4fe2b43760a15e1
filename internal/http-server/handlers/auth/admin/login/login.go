package login

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

type AdminAuthenticator interface {
	AdminLogin(ctx context.Context, req api.AdminLoginRequest) (api.LoginResponse, error)
}

type Request struct {
	api.AdminLoginRequest
}

type Response struct {
	response.Response
	api.LoginResponse
}

func New(log *slog.Logger, auth AdminAuthenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.admin.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		resp, err := auth.AdminLogin(r.Context(), req.AdminLoginRequest)

		if errors.Is(err, response.ErrValidation) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), "Please enter a valid email address."))
			return
		}

		if errors.Is(err, response.ErrInvalidCredentials) {
			log.Warn("invalid admin credentials")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.INVALID_CREDENTIALS), "Invalid email or password."))
			return
		}

		if errors.Is(err, response.ErrNotAdmin) {
			log.Warn("account is not an administrator")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.NOT_ADMIN), "Access denied. This account does not have admin privileges."))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			log.Error("backend offline during sign-in", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgConnectionLost))
			return
		}

		if errors.Is(err, response.ErrPermission) {
			log.Error("permission check failed", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.PERMISSION_DENIED), "Failed to verify user permissions. Please contact the administrator."))
			return
		}

		if err != nil {
			log.Error("Failed to sign in", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to sign in. Please try again."))
			return
		}

		log.Info("admin signed in", slog.String("uid", resp.User.UID))

		render.JSON(w, r, Response{LoginResponse: resp})
	}
}
