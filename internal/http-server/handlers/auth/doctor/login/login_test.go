package login

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospital-service/api"
	"hospital-service/pkg/response"
)

type fakeAuth struct {
	got  api.DoctorLoginRequest
	resp api.LoginResponse
	err  error
}

func (f *fakeAuth) DoctorLogin(_ context.Context, req api.DoctorLoginRequest) (api.LoginResponse, error) {
	f.got = req
	return f.resp, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  response.ErrCode
	}{
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest, wantErr: response.BAD_REQUEST},
		{name: "wrong password", body: `{"doctorId":"DOC1001","password":"x"}`, err: response.ErrInvalidCredentials, wantCode: http.StatusUnauthorized, wantErr: response.INVALID_CREDENTIALS},
		{name: "inactive", body: `{"doctorId":"DOC1001","password":"x"}`, err: response.ErrInactive, wantCode: http.StatusForbidden, wantErr: response.ACCOUNT_INACTIVE},
		{name: "offline", body: `{"doctorId":"DOC1001","password":"x"}`, err: response.ErrOffline, wantCode: http.StatusServiceUnavailable, wantErr: response.OFFLINE},
		{name: "unexpected", body: `{"doctorId":"DOC1001","password":"x"}`, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: response.FAILED_REQUEST},
		{name: "ok", body: `{"doctorId":"DOC1001","password":"secret1"}`, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{
				resp: api.LoginResponse{Token: "tok", User: api.SessionUser{UID: "doc-1", DoctorID: "DOC1001"}},
				err:  tt.err,
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/doctor/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			New(discard(), auth).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var body Response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code != string(tt.wantErr) {
				t.Errorf("error code = %q, want %q", body.Code, tt.wantErr)
			}

			if tt.wantCode == http.StatusOK {
				if body.Token != "tok" || body.User.DoctorID != "DOC1001" {
					t.Errorf("body = %+v", body)
				}
				if auth.got.Password != "secret1" {
					t.Errorf("request not forwarded: %+v", auth.got)
				}
			}
		})
	}
}
