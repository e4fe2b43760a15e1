package service

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"hospital-service/api"
	"hospital-service/internal/models"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
)

func ptr[T any](v T) *T { return &v }

func TestAdminDashboard(t *testing.T) {
	h := newHarness(t)
	seedAppointments(h)
	seedDoctor(t, h, "doc-1", "DOC1001", "secret1", models.DoctorActive)

	resp, err := h.svc.AdminDashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := models.DashboardStats{TotalDoctors: 1, TotalAppointments: 5, OnlineConsultations: 2, CompletedAppointments: 1}
	if resp.Stats != want || resp.Warning != "" {
		t.Errorf("dashboard = %+v", resp)
	}
}

func TestAdminDashboard_SampleFallback(t *testing.T) {
	h := newHarness(t)
	h.store.statsErr = errors.New("boom")

	dash, err := h.svc.AdminDashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if dash.Stats != models.SampleDashboardStats || dash.Warning != response.MsgSampleData {
		t.Errorf("dashboard = %+v", dash)
	}

	analytics, err := h.svc.PatientAnalytics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if analytics.Analytics != models.SamplePatientAnalytics || analytics.Warning != response.MsgSampleData {
		t.Errorf("analytics = %+v", analytics)
	}
}

func TestHospitalSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got, err := h.svc.HospitalSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Settings != models.DefaultHospitalSettings() {
		t.Errorf("settings = %+v, want defaults", got.Settings)
	}

	if _, err := h.svc.UpdateHospitalSettings(ctx, api.SettingsRequest{ContactEmail: ptr("nope")}); !errors.Is(err, response.ErrValidation) {
		t.Errorf("bad email err = %v", err)
	}

	upd, err := h.svc.UpdateHospitalSettings(ctx, api.SettingsRequest{Name: ptr("St. Elsewhere")})
	if err != nil {
		t.Fatal(err)
	}
	if upd.Settings.Name != "St. Elsewhere" || upd.Settings.RegistrationNumber != "HSP-2024-001" {
		t.Errorf("merge lost fields: %+v", upd.Settings)
	}

	got, err = h.svc.HospitalSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Settings.Name != "St. Elsewhere" || got.Settings.UpdatedAt == nil {
		t.Errorf("stored settings = %+v", got.Settings)
	}
}

func TestUpdateAdminProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedAdmin(t, h, "u-1", "admin@clinic.test", "hunter22", true)

	login, err := h.svc.AdminLogin(ctx, api.AdminLoginRequest{Email: "admin@clinic.test", Password: "hunter22"})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := h.svc.AdminSession(ctx, login.Token)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := h.svc.UpdateAdminProfile(ctx, sess, api.AdminProfileRequest{Name: ptr(" New Name "), Department: ptr("Cardiology")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Profile.Name != "New Name" || resp.Profile.Department != "Cardiology" || resp.Profile.Email != "admin@clinic.test" {
		t.Errorf("profile = %+v", resp.Profile)
	}

	sess, err = h.svc.AdminSession(ctx, login.Token)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Principal.Name != "New Name" {
		t.Error("session should pick up the new name")
	}
}

func TestAdminProfile_OfflineFallsBackToSession(t *testing.T) {
	h := newHarness(t)
	h.store.adminErr = errConnRefused

	resp, err := h.svc.AdminProfile(context.Background(), session.Session{Principal: session.Principal{UID: "u-1", Email: "a@b.test", Name: "A"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Warning != response.MsgConnectionLost || resp.Profile.Email != "a@b.test" {
		t.Errorf("profile = %+v", resp)
	}
}

func TestCreateDoctor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := api.DoctorRequest{Name: "Dr. House", Specialization: "Diagnostics", Email: "house@clinic.test"}

	resp, err := h.svc.CreateDoctor(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^DOC\d{4}$`).MatchString(resp.Doctor.DoctorID) {
		t.Errorf("generated code = %q", resp.Doctor.DoctorID)
	}
	if len(resp.Password) != 8 {
		t.Errorf("generated password = %q", resp.Password)
	}
	if resp.Doctor.Status != models.DoctorActive {
		t.Errorf("status = %q", resp.Doctor.Status)
	}

	if _, err := h.svc.DoctorLogin(ctx, api.DoctorLoginRequest{DoctorID: resp.Doctor.DoctorID, Password: resp.Password}); err != nil {
		t.Errorf("generated credentials rejected: %v", err)
	}

	req.DoctorID = resp.Doctor.DoctorID
	req.Password = "chosen-pass"
	if _, err := h.svc.CreateDoctor(ctx, req); !errors.Is(err, response.ErrConflict) {
		t.Errorf("duplicate code err = %v", err)
	}

	req.DoctorID = "DOC4242"
	dup, err := h.svc.CreateDoctor(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if dup.Password != "" {
		t.Error("a chosen password must not be echoed back")
	}

	if _, err := h.svc.CreateDoctor(ctx, api.DoctorRequest{Name: "No Email"}); !errors.Is(err, response.ErrValidation) {
		t.Errorf("invalid request err = %v", err)
	}
}

func TestUpdateAndDeleteDoctor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := seedDoctor(t, h, "doc-1", "DOC1001", "secret1", models.DoctorActive)

	upd, err := h.svc.UpdateDoctor(ctx, d.ID, api.DoctorRequest{
		Name: "Dr. Renamed", Specialization: "Surgery", Email: "r@clinic.test", Status: models.DoctorInactive,
	})
	if err != nil {
		t.Fatal(err)
	}
	if upd.Name != "Dr. Renamed" || upd.DoctorID != "DOC1001" || upd.Status != models.DoctorInactive {
		t.Errorf("updated = %+v", upd)
	}
	if h.store.doctors[d.ID].PasswordHash != d.PasswordHash {
		t.Error("password must survive an update without one")
	}

	if _, err := h.svc.DoctorLogin(ctx, api.DoctorLoginRequest{DoctorID: "DOC1001", Password: "secret1"}); !errors.Is(err, response.ErrInactive) {
		t.Errorf("deactivated login err = %v", err)
	}

	if err := h.svc.DeleteDoctor(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if err := h.svc.DeleteDoctor(ctx, d.ID); !errors.Is(err, response.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestUploadProfileImage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedDoctor(t, h, "doc-1", "DOC1001", "secret1", models.DoctorActive)

	login, err := h.svc.DoctorLogin(ctx, api.DoctorLoginRequest{DoctorID: "DOC1001", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := h.svc.DoctorSession(ctx, login.Token)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.UploadProfileImage(ctx, sess, "cv.pdf", "application/pdf", 10, bytes.NewReader(nil)); !errors.Is(err, response.ErrValidation) {
		t.Errorf("pdf upload err = %v", err)
	}

	resp, err := h.svc.UploadProfileImage(ctx, sess, "me.png", "image/png", 4, bytes.NewReader([]byte("\x89PNG")))
	if err != nil {
		t.Fatal(err)
	}

	wantKey := "doctor-profiles/doc-1/1741947300000_me.png"
	if resp.URL != "http://blobs.test/"+wantKey {
		t.Errorf("url = %q", resp.URL)
	}
	if _, ok := h.blobs.puts[wantKey]; !ok {
		t.Error("blob not written")
	}
	if h.store.doctors["doc-1"].Profile.ProfileImage != resp.URL {
		t.Error("profile should point at the new image")
	}

	sess, err = h.svc.DoctorSession(ctx, login.Token)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Principal.ProfileImage != resp.URL {
		t.Error("session should carry the new image")
	}
}

func TestUpdateDoctorProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedDoctor(t, h, "doc-1", "DOC1001", "secret1", models.DoctorActive)

	fee := 500.0
	resp, err := h.svc.UpdateDoctorProfile(ctx, session.Session{Principal: session.Principal{UID: "doc-1"}}, api.DoctorProfileRequest{
		Phone:   ptr("+1 555 0100"),
		Profile: &models.DoctorProfile{Bio: "Hello", ConsultationFee: &fee},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Phone != "+1 555 0100" || resp.Profile.Bio != "Hello" || *resp.Profile.ConsultationFee != 500 {
		t.Errorf("profile = %+v", resp)
	}
	if resp.Name != "Dr. doc-1" {
		t.Error("untouched fields must be kept")
	}
}
