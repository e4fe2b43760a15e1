package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

type TimeSlotsGetter interface {
	ListTimeSlots(ctx context.Context, doctorID string) (api.TimeSlotsResponse, error)
}

// New lists the signed-in doctor's upcoming slots. Past slots are pruned as a
// side effect.
func New(log *slog.Logger, getter TimeSlotsGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.time_slots.get.New"

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

		resp, err := getter.ListTimeSlots(r.Context(), sess.Principal.UID)
		if err != nil {
			log.Error("Failed to load time slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to load time slots."))
			return
		}

		if resp.Slots == nil {
			resp.Slots = []api.TimeSlot{}
		}

		render.JSON(w, r, resp)
	}
}
