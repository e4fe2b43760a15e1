package create

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
)

type fakeCreator struct {
	doctorID string
	req      api.TimeSlotRequest
	resp     api.TimeSlotResponse
	err      error
}

func (f *fakeCreator) CreateTimeSlot(_ context.Context, doctorID string, req api.TimeSlotRequest) (api.TimeSlotResponse, error) {
	f.doctorID = doctorID
	f.req = req
	return f.resp, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const body = `{"date":"2025-03-15","startTime":"09:00 AM","endTime":"10:30 AM","maxPatients":3,"type":"in-person"}`

func doRequest(h http.Handler, signedIn bool, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/doctor/time-slots", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signedIn {
		req = req.WithContext(mwAuth.WithSession(req.Context(), session.Session{
			ID:        "s-1",
			Principal: session.Principal{UID: "doc-1"},
		}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		signedIn bool
		payload  string
		err      error
		wantCode int
		wantErr  response.ErrCode
		wantMsg  string
	}{
		{name: "no session", payload: body, wantCode: http.StatusUnauthorized, wantErr: response.UNAUTHORIZED},
		{name: "bad json", signedIn: true, payload: `[`, wantCode: http.StatusBadRequest, wantErr: response.BAD_REQUEST},
		{
			name: "validation", signedIn: true, payload: body,
			err:      fmt.Errorf("service.CreateTimeSlot: %w: End time must be after start time.", response.ErrValidation),
			wantCode: http.StatusBadRequest, wantErr: response.VALIDATION, wantMsg: "End time must be after start time.",
		},
		{name: "doctor deleted", signedIn: true, payload: body, err: fmt.Errorf("storage.postgres.GetSlots: %w", response.ErrNotFound), wantCode: http.StatusNotFound, wantErr: response.NOT_FOUND},
		{name: "locked", signedIn: true, payload: body, err: response.ErrLocked, wantCode: http.StatusLocked, wantErr: response.LOCKED},
		{name: "conflict", signedIn: true, payload: body, err: response.ErrConflict, wantCode: http.StatusConflict, wantErr: response.CONFLICT},
		{name: "offline without cache", signedIn: true, payload: body, err: response.ErrOffline, wantCode: http.StatusServiceUnavailable, wantErr: response.OFFLINE},
		{name: "unexpected", signedIn: true, payload: body, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: response.FAILED_REQUEST},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(New(discard(), &fakeCreator{err: tt.err}), tt.signedIn, tt.payload)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var got response.Response
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Code != string(tt.wantErr) {
				t.Errorf("code = %q, want %q", got.Code, tt.wantErr)
			}
			if tt.wantMsg != "" && got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestNew_Created(t *testing.T) {
	creator := &fakeCreator{
		resp: api.TimeSlotResponse{
			Slot: api.TimeSlot{
				TimeSlot: models.TimeSlot{ID: "slot-1", DoctorID: "doc-1", Date: "2025-03-15", IsAvailable: true},
				Duration: "1 hr 30 min",
			},
			Warning: response.MsgSavedLocally,
		},
	}

	rec := doRequest(New(discard(), creator), true, body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if creator.doctorID != "doc-1" || creator.req.MaxPatients != 3 || creator.req.Type != models.ConsultationInPerson {
		t.Errorf("forwarded %q %+v", creator.doctorID, creator.req)
	}

	var got api.TimeSlotResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Slot.ID != "slot-1" || got.Slot.Duration != "1 hr 30 min" || got.Warning != response.MsgSavedLocally {
		t.Errorf("body = %+v", got)
	}
}
