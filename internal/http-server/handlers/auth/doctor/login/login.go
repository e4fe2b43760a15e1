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

type DoctorAuthenticator interface {
	DoctorLogin(ctx context.Context, req api.DoctorLoginRequest) (api.LoginResponse, error)
}

type Request struct {
	api.DoctorLoginRequest
}

type Response struct {
	response.Response
	api.LoginResponse
}

func New(log *slog.Logger, auth DoctorAuthenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.doctor.login.New"

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

		resp, err := auth.DoctorLogin(r.Context(), req.DoctorLoginRequest)

		if errors.Is(err, response.ErrInvalidCredentials) {
			log.Warn("invalid doctor credentials")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.INVALID_CREDENTIALS), "Invalid Doctor ID or password."))
			return
		}

		if errors.Is(err, response.ErrInactive) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.ACCOUNT_INACTIVE), "Your account is inactive. Please contact the administrator."))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			log.Error("backend offline during sign-in", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgConnectionLost))
			return
		}

		if err != nil {
			log.Error("Failed to sign in", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Login failed. Please try again."))
			return
		}

		log.Info("doctor signed in", slog.String("doctor_id", resp.User.DoctorID))

		render.JSON(w, r, Response{LoginResponse: resp})
	}
}
