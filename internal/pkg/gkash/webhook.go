package gkash

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CallbackEvent represents Gkash callback (and return URL) data.
// Gkash posts data as form parameters, not JSON.
type CallbackEvent struct {
	CID       string // Merchant client id
	POID      string // Provider payment/order id (idempotency key)
	Status    string // Payment status string, e.g. "88 - Transferred"
	CartID    string // Merchant cart id, embeds the account id
	Currency  string
	Amount    string // Decimal amount as sent by the provider
	Signature string // SHA-512 signature to verify
}

// ParseCallbackForm parses form-encoded callback data into a structured event
func ParseCallbackForm(form url.Values) (*CallbackEvent, error) {
	ev := &CallbackEvent{
		CID:       form.Get("CID"),
		POID:      form.Get("POID"),
		Status:    form.Get("status"),
		CartID:    form.Get("cartid"),
		Currency:  form.Get("currency"),
		Amount:    form.Get("amount"),
		Signature: form.Get("signature"),
	}

	if ev.POID == "" {
		return nil, fmt.Errorf("POID is required")
	}
	if ev.Amount == "" {
		return nil, fmt.Errorf("amount is required")
	}
	if ev.Signature == "" {
		return nil, fmt.Errorf("signature is required")
	}

	return ev, nil
}

// Verify recomputes the event signature with the shared key and compares it
// to the supplied one. Fails closed on a malformed amount.
func (e *CallbackEvent) Verify(signatureKey string) bool {
	if signatureKey == "" || e.Signature == "" {
		return false
	}

	cents, err := ParseAmountCents(e.Amount)
	if err != nil {
		return false
	}

	base := BuildSignatureBase(signatureKey, e.CID, e.POID, e.CartID, cents, e.Currency, e.Status)
	return VerifySignature(Sign(base), e.Signature)
}

// IsPaid reports whether the event carries the provider's settled status
func (e *CallbackEvent) IsPaid() bool {
	return e.Status == StatusPaid
}

// AmountCents returns the event amount as integer cents
func (e *CallbackEvent) AmountCents() (int64, error) {
	return ParseAmountCents(e.Amount)
}

// RawDetails serializes the event for audit storage
func (e *CallbackEvent) RawDetails() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// UserIDFromCartID extracts the account id from a cart id of the form
// "<prefix>__<uuid>".
func UserIDFromCartID(cartID string) (uuid.UUID, error) {
	parts := strings.Split(cartID, "__")
	if len(parts) < 2 {
		return uuid.Nil, fmt.Errorf("malformed cart id %q", cartID)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account id in cart id %q: %w", cartID, err)
	}
	return id, nil
}

// ParseAmountCents converts a decimal amount string to integer cents.
// The gateway signs over the rounded cent value, so extra fractional
// digits are rounded half up to the nearest cent, not rejected.
func ParseAmountCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac := raw, ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		whole, frac = raw[:i], raw[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", raw)
		}
	}
	roundUp := len(frac) > 2 && frac[2] >= '5'
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	centsPart, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	cents := units*100 + centsPart
	if roundUp {
		cents++
	}
	return cents, nil
}
