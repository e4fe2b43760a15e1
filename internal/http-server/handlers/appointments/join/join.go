package join

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type MeetingJoiner interface {
	JoinMeeting(ctx context.Context, doctorID, id string) (api.JoinMeetingResponse, error)
}

type Response struct {
	response.Response
	api.JoinMeetingResponse
}

func New(log *slog.Logger, joiner MeetingJoiner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.join.New"

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

		id := chi.URLParam(r, "id")

		resp, err := joiner.JoinMeeting(r.Context(), sess.Principal.UID, id)

		if errors.Is(err, response.ErrValidation) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), "only online consultations have a meeting"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if errors.Is(err, response.ErrOffline) {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(string(response.OFFLINE), response.MsgNoConnection))
			return
		}

		if err != nil {
			log.Error("Failed to join meeting", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to join meeting."))
			return
		}

		log.Info("Meeting joined", slog.String("appointment_id", id))

		render.JSON(w, r, Response{JoinMeetingResponse: resp})
	}
}
