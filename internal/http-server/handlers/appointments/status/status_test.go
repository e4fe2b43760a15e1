package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
)

type fakeUpdater struct {
	doctorID, id string
	status       models.AppointmentStatus
	err          error
}

func (f *fakeUpdater) UpdateAppointmentStatus(_ context.Context, doctorID, id string, status models.AppointmentStatus) (models.Appointment, error) {
	f.doctorID, f.id, f.status = doctorID, id, status
	if f.err != nil {
		return models.Appointment{}, f.err
	}
	return models.Appointment{ID: id, DoctorID: doctorID, Status: status}, nil
}

func serve(u *fakeUpdater, id, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := mwAuth.WithSession(r.Context(), session.Session{Principal: session.Principal{UID: "doc-1"}})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Put("/doctor/appointments/{id}/status", New(slog.New(slog.NewTextHandler(io.Discard, nil)), u))

	req := httptest.NewRequest(http.MethodPut, "/doctor/appointments/"+id+"/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNew(t *testing.T) {
	u := &fakeUpdater{}

	rec := serve(u, "a1", `{"status":"no-show"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if u.doctorID != "doc-1" || u.id != "a1" || u.status != models.StatusNoShow {
		t.Errorf("forwarded %q %q %q", u.doctorID, u.id, u.status)
	}

	var got Response
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Appointment.Status != models.StatusNoShow {
		t.Errorf("appointment = %+v", got.Appointment)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "unknown status", err: fmt.Errorf("service.UpdateAppointmentStatus: %w", response.ErrValidation), wantCode: http.StatusBadRequest},
		{name: "other doctor", err: response.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "offline", err: response.ErrOffline, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&fakeUpdater{err: tt.err}, "a1", `{"status":"rescheduled"}`)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}
