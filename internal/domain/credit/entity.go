package credit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EntryType classifies ledger movements
type EntryType string

const (
	EntryPurchase   EntryType = "purchase"
	EntryUsage      EntryType = "usage"
	EntryRefund     EntryType = "refund"
	EntryBonus      EntryType = "bonus"
	EntryAdjustment EntryType = "adjustment"
)

// RefKind names the entity a ledger entry points at
type RefKind string

const (
	RefPayment RefKind = "payment"
	RefVideo   RefKind = "video"
)

// Reference links a ledger entry to the record that caused it.
// The kind disambiguates the ID namespace so a payment and a video
// with the same UUID can never be confused.
type Reference struct {
	Kind RefKind   `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// PaymentRef builds a reference to a payment record
func PaymentRef(id uuid.UUID) *Reference {
	return &Reference{Kind: RefPayment, ID: id}
}

// VideoRef builds a reference to a video job
func VideoRef(id uuid.UUID) *Reference {
	return &Reference{Kind: RefVideo, ID: id}
}

// Metadata holds free-form JSONB attached to a ledger entry
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("metadata: expected []byte")
	}
	return json.Unmarshal(b, m)
}

// LedgerEntry is one immutable movement on a user's credit balance.
// Amount is positive for credits in, negative for credits out.
// BalanceAfter is the balance at the moment the entry was written,
// so the history reads as a running statement.
type LedgerEntry struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Type         EntryType  `db:"type" json:"type"`
	Amount       int64      `db:"amount" json:"amount"`
	BalanceAfter int64      `db:"balance_after" json:"balance_after"`
	RefKind      *RefKind   `db:"ref_kind" json:"-"`
	RefID        *uuid.UUID `db:"ref_id" json:"-"`
	Description  string     `db:"description" json:"description"`
	Metadata     Metadata   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Ref reassembles the tagged reference, nil when the entry is unlinked
func (e *LedgerEntry) Ref() *Reference {
	if e.RefKind == nil || e.RefID == nil {
		return nil
	}
	return &Reference{Kind: *e.RefKind, ID: *e.RefID}
}

// MarshalJSON flattens the reference into the wire shape
func (e *LedgerEntry) MarshalJSON() ([]byte, error) {
	type alias LedgerEntry
	return json.Marshal(struct {
		*alias
		Reference *Reference `json:"reference,omitempty"`
	}{
		alias:     (*alias)(e),
		Reference: e.Ref(),
	})
}
