package credit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/jwt"
)

// Routes returns credit routes. The purchase endpoint is mounted
// separately by the payment domain, which owns the charge flow.
func Routes(handler *Handler, jwtService *jwt.Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/packages", handler.Packages)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtService))

		r.Get("/balance", handler.Balance)
		r.Get("/transactions", handler.Transactions)
	})

	return r
}
