package delete

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
)

type fakeDeleter struct {
	doctorID, slotID string
	warning          string
	err              error
}

func (f *fakeDeleter) DeleteTimeSlot(_ context.Context, doctorID, slotID string) (string, error) {
	f.doctorID, f.slotID = doctorID, slotID
	return f.warning, f.err
}

func serve(d *fakeDeleter, slotID string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := mwAuth.WithSession(r.Context(), session.Session{Principal: session.Principal{UID: "doc-1"}})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Delete("/doctor/time-slots/{id}", New(slog.New(slog.NewTextHandler(io.Discard, nil)), d))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/doctor/time-slots/"+slotID, nil))
	return rec
}

func TestNew(t *testing.T) {
	d := &fakeDeleter{}

	rec := serve(d, "slot-1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if d.doctorID != "doc-1" || d.slotID != "slot-1" {
		t.Errorf("forwarded %q %q", d.doctorID, d.slotID)
	}
}

func TestNew_QueuedOffline(t *testing.T) {
	rec := serve(&fakeDeleter{warning: response.MsgSavedLocally}, "slot-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got api.WarningResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Warning != response.MsgSavedLocally {
		t.Errorf("warning = %q", got.Warning)
	}
}

func TestNew_NotFound(t *testing.T) {
	rec := serve(&fakeDeleter{err: response.ErrNotFound}, "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
