package video

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/response"
	"github.com/reelworks/reelworks-api/internal/pkg/validator"
)

// Handler handles video HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates a new video handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Generate handles POST /video/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	view, remaining, err := h.service.Generate(r.Context(), userID, req)
	if err != nil {
		var insufficientErr *InsufficientCreditsError
		switch {
		case errors.As(err, &insufficientErr):
			response.PaymentRequired(w, "INSUFFICIENT_CREDITS", "Not enough credits", map[string]string{
				"required": strconv.FormatInt(insufficientErr.Required, 10),
				"current":  strconv.FormatInt(insufficientErr.Current, 10),
			})
		case errors.Is(err, ErrProvider):
			response.Error(w, http.StatusBadGateway, "PROVIDER_ERROR", "Video generation is temporarily unavailable, credits were not charged")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, map[string]interface{}{
		"video":             view,
		"credits_remaining": remaining,
	})
}

// Quote handles GET /video/quote
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resolution := q.Get("resolution")
	switch resolution {
	case "", "hd", "fhd", "4k":
	default:
		response.BadRequest(w, "Invalid resolution")
		return
	}

	duration := 0
	if raw := q.Get("duration"); raw != "" {
		var err error
		if duration, err = strconv.Atoi(raw); err != nil || duration < 1 || duration > 60 {
			response.BadRequest(w, "Invalid duration")
			return
		}
	}

	cost := h.service.Quote(Settings{Resolution: resolution, Duration: duration})
	response.OK(w, map[string]interface{}{
		"credits_cost": cost,
	})
}

// List handles GET /video
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	status := Status(r.URL.Query().Get("status"))
	switch status {
	case "", StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
	default:
		response.BadRequest(w, "Invalid status filter")
		return
	}

	views, total, err := h.service.List(r.Context(), userID, status, r.URL.Query().Get("search"), page, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, views, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}

// Get handles GET /video/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "Video not found")
		return
	}

	view, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Video not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, view)
}

// Download handles POST /video/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "Video not found")
		return
	}

	url, err := h.service.RecordDownload(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotReady) {
			response.NotFound(w, "Video not found or not ready")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"download_url": url,
	})
}

// Share handles POST /video/{id}/share
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "Video not found")
		return
	}

	if err := h.service.RecordShare(r.Context(), userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Video not found or not ready")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"shared": true,
	})
}

// Delete handles DELETE /video/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "Video not found")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Video not found or still processing")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}
