package blob

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hospital-service/pkg/response"
)

func TestPut(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/blobs/")
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.Put(context.Background(), "doctor-profiles/d1/1_me.png", strings.NewReader("png-bytes"), 100)
	if err != nil {
		t.Fatal(err)
	}
	if url != "http://localhost:8080/blobs/doctor-profiles/d1/1_me.png" {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "doctor-profiles", "d1", "1_me.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestPut_TooLarge(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Put(context.Background(), "a/b.png", strings.NewReader("0123456789"), 5)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "a", "b.png")); !os.IsNotExist(err) {
		t.Error("oversized upload should not be stored")
	}
}

func TestPut_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "/abs"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), 10); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestValidateImage(t *testing.T) {
	if err := ValidateImage("me.png", "image/png", 1024, DefaultMaxImageBytes); err != nil {
		t.Errorf("valid image rejected: %v", err)
	}

	tests := []struct {
		name, file, ctype string
		size              int64
		want              error
	}{
		{"pdf", "cv.pdf", "application/pdf", 10, ErrInvalidContentType},
		{"too big", "big.jpg", "image/jpeg", DefaultMaxImageBytes + 1, ErrFileTooLarge},
		{"no name", "", "image/png", 10, ErrMissingFileName},
	}
	for _, tt := range tests {
		err := ValidateImage(tt.file, tt.ctype, tt.size, DefaultMaxImageBytes)
		if !errors.Is(err, tt.want) || !errors.Is(err, response.ErrValidation) {
			t.Errorf("%s: got %v", tt.name, err)
		}
	}
}

func TestProfileImageKey(t *testing.T) {
	now := time.UnixMilli(1741944600123)
	got := ProfileImageKey("d1", now, `C:\Users\me\my photo.png`)
	want := "doctor-profiles/d1/1741944600123_my_photo.png"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}

	if got := ProfileImageKey("d1", now, ".."); !strings.HasSuffix(got, "_upload") {
		t.Errorf("dot-only names should fall back, got %q", got)
	}
}

func TestFileServer_HidesDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(context.Background(), "doctor-profiles/d1/1_me.png", strings.NewReader("png-bytes"), 100); err != nil {
		t.Fatal(err)
	}

	srv := FileServer(dir)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"file", "/doctor-profiles/d1/1_me.png", http.StatusOK},
		{"listing", "/doctor-profiles/", http.StatusNotFound},
		{"nested listing", "/doctor-profiles/d1/", http.StatusNotFound},
		{"root", "/", http.StatusNotFound},
		{"missing", "/doctor-profiles/d1/none.png", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.code {
				t.Errorf("GET %s = %d, want %d", tt.path, rr.Code, tt.code)
			}
			if tt.code == http.StatusOK && rr.Body.String() != "png-bytes" {
				t.Errorf("body = %q", rr.Body.String())
			}
		})
	}
}
