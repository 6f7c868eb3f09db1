package payment

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of a payment record. Only settled payments are stored,
// so the set stays small.
type Status string

const (
	StatusCompleted Status = "completed"
)

// RawDetails stores the provider's payload verbatim as JSONB
type RawDetails json.RawMessage

// Value implements driver.Valuer
func (d RawDetails) Value() (driver.Value, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	return []byte(d), nil
}

// Scan implements sql.Scanner
func (d *RawDetails) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("raw details: expected []byte")
	}
	*d = make(RawDetails, len(b))
	copy(*d, b)
	return nil
}

// MarshalJSON emits the stored payload as-is
func (d RawDetails) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return []byte(d), nil
}

// Payment is a settled charge that granted credits. The provider
// payment ID is unique so a replayed webhook can never grant twice.
type Payment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	Provider          string     `db:"provider" json:"provider"`
	ProviderPaymentID string     `db:"provider_payment_id" json:"provider_payment_id"`
	PackageID         string     `db:"package_id" json:"package_id"`
	Credits           int64      `db:"credits" json:"credits"`
	AmountCents       int64      `db:"amount_cents" json:"amount_cents"`
	Currency          string     `db:"currency" json:"currency"`
	Status            Status     `db:"status" json:"status"`
	Details           RawDetails `db:"details" json:"details,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}
