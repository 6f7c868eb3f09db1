package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
)

// Repository handles payment persistence
type Repository struct {
	db      *sqlx.DB
	credits *credit.Repository
}

// NewRepository creates a new payment repository
func NewRepository(db *sqlx.DB, credits *credit.Repository) *Repository {
	return &Repository{db: db, credits: credits}
}

const paymentColumns = `id, user_id, provider, provider_payment_id, package_id, credits, amount_cents, currency, status, details, created_at`

// GetByProviderPaymentID fetches a payment by the provider's ID
func (r *Repository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*Payment, error) {
	var p Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`

	err := r.db.GetContext(ctx, &p, query, providerPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("provider_payment_id", providerPaymentID).Msg("Failed to get payment")
		return nil, ErrInternal
	}

	return &p, nil
}

// ListByUser returns a page of a user's payments, newest first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM payments WHERE user_id = $1`, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to count payments")
		return nil, 0, ErrInternal
	}

	payments := []Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err = r.db.SelectContext(ctx, &payments, query, userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list payments")
		return nil, 0, ErrInternal
	}

	return payments, total, nil
}

// RecordPurchase inserts the payment and grants its credits in one
// transaction. The unique index on provider_payment_id turns webhook
// replays into ErrDuplicate, and the rollback guarantees a payment
// row never exists without its ledger entry.
func (r *Repository) RecordPurchase(ctx context.Context, p *Payment) (*credit.LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin purchase transaction")
		return nil, ErrInternal
	}
	defer tx.Rollback()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusCompleted
	}

	query := `
		INSERT INTO payments (id, user_id, provider, provider_payment_id, package_id, credits, amount_cents, currency, status, details)
		VALUES (:id, :user_id, :provider, :provider_payment_id, :package_id, :credits, :amount_cents, :currency, :status, :details)
		RETURNING created_at`

	rows, err := tx.NamedQuery(query, p)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		log.Error().Err(err).Str("provider_payment_id", p.ProviderPaymentID).Msg("Failed to insert payment")
		return nil, ErrInternal
	}
	if rows.Next() {
		if err := rows.Scan(&p.CreatedAt); err != nil {
			rows.Close()
			log.Error().Err(err).Msg("Failed to scan payment timestamp")
			return nil, ErrInternal
		}
	}
	rows.Close()

	entry, err := r.credits.ApplyTx(ctx, tx, credit.Change{
		UserID:      p.UserID,
		Type:        credit.EntryPurchase,
		Amount:      p.Credits,
		Ref:         credit.PaymentRef(p.ID),
		Description: "credit purchase: " + p.PackageID,
		Metadata: credit.Metadata{
			"provider":            p.Provider,
			"provider_payment_id": p.ProviderPaymentID,
			"amount_cents":        p.AmountCents,
			"currency":            p.Currency,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Failed to commit purchase transaction")
		return nil, ErrInternal
	}

	return entry, nil
}
