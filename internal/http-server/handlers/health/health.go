package health

import (
	"net/http"

	"github.com/go-chi/render"

	"hospital-service/api"
)

type HealthReporter interface {
	Health() api.HealthResponse
}

// New reports connectivity and the outbox depth. An offline backend answers 503.
func New(reporter HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := reporter.Health()
		if !h.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		render.JSON(w, r, h)
	}
}
