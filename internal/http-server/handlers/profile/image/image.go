package image

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/session"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

const formField = "image"

// multipartOverhead is allowed on top of the image cap for form boundaries and
// headers.
const multipartOverhead = 64 << 10

type ImageUploader interface {
	UploadProfileImage(ctx context.Context, sess session.Session, fileName, contentType string, size int64, r io.Reader) (api.ProfileImageResponse, error)
}

type Response struct {
	response.Response
	api.ProfileImageResponse
}

// New accepts a multipart upload with the file in the "image" field.
func New(log *slog.Logger, uploader ImageUploader, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.image.New"

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

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

		file, header, err := r.FormFile(formField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				render.JSON(w, r, response.Error(string(response.VALIDATION), "Image must be 5MB or smaller."))
				return
			}
			log.Error("Failed to read upload", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "an image file is required"))
			return
		}
		defer file.Close()

		resp, err := uploader.UploadProfileImage(r.Context(), sess, header.Filename,
			header.Header.Get("Content-Type"), header.Size, file)

		if errors.Is(err, response.ErrValidation) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), response.ValidationMessage(err)))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "doctor not found"))
			return
		}

		if err != nil {
			log.Error("Failed to upload image", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "Failed to upload image. Please try again."))
			return
		}

		log.Info("Profile image uploaded", slog.String("url", resp.URL))

		render.JSON(w, r, Response{ProfileImageResponse: resp})
	}
}
