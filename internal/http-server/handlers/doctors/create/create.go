package create

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

type DoctorCreator interface {
	CreateDoctor(ctx context.Context, req api.DoctorRequest) (api.DoctorCreateResponse, error)
}

type Response struct {
	response.Response
	api.DoctorCreateResponse
}

func New(log *slog.Logger, creator DoctorCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.doctors.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.DoctorRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		resp, err := creator.CreateDoctor(r.Context(), req)

		if errors.Is(err, response.ErrValidation) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), response.ValidationMessage(err)))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "A doctor with this Doctor ID already exists."))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgNoConnection))
			return
		}

		if err != nil {
			log.Error("Failed to create doctor", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to create doctor. Please try again."))
			return
		}

		log.Info("Doctor created", slog.String("doctor_id", resp.Doctor.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{DoctorCreateResponse: resp})
	}
}
