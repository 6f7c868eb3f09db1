package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/response"
	"github.com/reelworks/reelworks-api/internal/pkg/validator"
)

// Handler handles payment HTTP requests
type Handler struct {
	service   *Service
	clientURL string
}

// NewHandler creates a new payment handler
func NewHandler(service *Service, clientURL string) *Handler {
	return &Handler{service: service, clientURL: clientURL}
}

// GkashCallback handles the gateway's server-to-server notification.
// The gateway expects a plain "OK" body; anything else makes it retry
// the same notification. Only a signature mismatch gets a 400, since
// retrying a forged request can never succeed.
func (h *Handler) GkashCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	_, err := h.service.ReconcileGkashCallback(r.Context(), r.PostForm)
	if err != nil && errors.Is(err, ErrInvalidSignature) {
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// GkashReturn handles the browser redirect after checkout. It only
// routes the user to a success or failure page; the credits were
// granted (or not) by the callback.
func (h *Handler) GkashReturn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, h.clientURL+"/payment-failed?error=invalid_signature", http.StatusFound)
		return
	}

	paid, err := h.service.VerifyReturn(r.Form)
	if err != nil {
		http.Redirect(w, r, h.clientURL+"/payment-failed?error=invalid_signature", http.StatusFound)
		return
	}
	if !paid {
		http.Redirect(w, r, h.clientURL+"/payment-failed?status="+url.QueryEscape(r.Form.Get("status")), http.StatusFound)
		return
	}

	http.Redirect(w, r, h.clientURL+"/payment-success", http.StatusFound)
}

// Purchase handles POST /credit/purchase
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.PurchasePackage(r.Context(), userID, req.PackageID, req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownPackage):
			response.BadRequest(w, "Unknown credit package")
		case errors.Is(err, ErrChargeDeclined):
			response.PaymentRequired(w, "PAYMENT_FAILED", "Payment was declined", nil)
		case errors.Is(err, ErrDuplicate):
			response.Conflict(w, "Payment already processed")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{
		"payment_id":    result.Payment.ID,
		"credits_added": result.CreditsAdded,
		"new_balance":   result.Balance,
	})
}

// History handles GET /payment/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	payments, total, err := h.service.History(r.Context(), userID, page, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + limit - 1) / limit
	response.WithMeta(w, payments, response.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	})
}
