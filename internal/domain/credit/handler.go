package credit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/response"
)

// Handler handles credit HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates a new credit handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance handles GET /credit/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"credits": balance,
	})
}

// Transactions handles GET /credit/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	entries, total, err := h.service.History(r.Context(), userID, page, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, entries, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// Packages handles GET /credit/packages
func (h *Handler) Packages(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.service.PackageCatalog())
}
