package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/jwt"
)

// Routes returns payment routes. The gateway endpoints are public
// because the gateway authenticates with its signature, not a JWT.
func Routes(handler *Handler, jwtService *jwt.Service) http.Handler {
	r := chi.NewRouter()

	r.Post("/gkash-callback", handler.GkashCallback)
	r.Get("/gkash-return", handler.GkashReturn)
	r.Post("/gkash-return", handler.GkashReturn)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtService))

		r.Get("/history", handler.History)
	})

	return r
}
