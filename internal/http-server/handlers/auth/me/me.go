package me

import (
	"net/http"

	"github.com/go-chi/render"

	"hospital-service/api"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/internal/service"
	"hospital-service/pkg/response"
)

type Response struct {
	response.Response
	api.MeResponse
}

// New echoes the signed-in identity so a reloaded client can restore itself.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := mwAuth.SessionFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "not signed in"))
			return
		}

		render.JSON(w, r, Response{MeResponse: api.MeResponse{
			User:      service.SessionUser(sess.Principal),
			ExpiresAt: sess.ExpiresAt,
		}})
	}
}
