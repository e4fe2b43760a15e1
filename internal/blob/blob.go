// Package blob stores uploaded files on local disk and hands out their public
// URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"hospital-service/pkg/response"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
	ErrInvalidKey         = errors.New("invalid blob key")
)

const DefaultMaxImageBytes = 5 * 1024 * 1024

type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	const op = "blob.NewLocalStore"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Dir is the directory blobs are written under.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes r under key and returns the blob's public URL. At most maxBytes
// are accepted.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (string, error) {
	const op = "blob.LocalStore.Put"

	target, err := s.resolve(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if n > maxBytes {
		return "", fmt.Errorf("%s: %w", op, ErrFileTooLarge)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.URL(key), nil
}

// FileServer serves the files under dir. Directories answer 404 so their
// listings never leak blob keys.
func FileServer(dir string) http.Handler {
	return http.FileServer(filesOnly{http.Dir(dir)})
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}

	return file, nil
}

func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + key
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

// ValidateImage accepts image/* uploads up to maxBytes.
func ValidateImage(fileName, contentType string, size, maxBytes int64) error {
	if strings.TrimSpace(fileName) == "" {
		return fmt.Errorf("%w: %w", response.ErrValidation, ErrMissingFileName)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return fmt.Errorf("%w: %w", response.ErrValidation, ErrInvalidContentType)
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %w", response.ErrValidation, ErrFileTooLarge)
	}
	return nil
}

// ProfileImageKey builds doctor-profiles/<doctorID>/<unix ms>_<name>.
func ProfileImageKey(doctorID string, now time.Time, fileName string) string {
	return fmt.Sprintf("doctor-profiles/%s/%d_%s", doctorID, now.UnixMilli(), sanitizeName(fileName))
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
