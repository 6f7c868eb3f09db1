package video

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/jwt"
)

// Routes returns video routes, all behind authentication
func Routes(handler *Handler, jwtService *jwt.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Auth(jwtService))

	r.Post("/generate", handler.Generate)
	r.Get("/quote", handler.Quote)
	r.Get("/", handler.List)
	r.Get("/{id}", handler.Get)
	r.Post("/{id}/download", handler.Download)
	r.Post("/{id}/share", handler.Share)
	r.Delete("/{id}", handler.Delete)

	return r
}
