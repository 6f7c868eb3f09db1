package credit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Repository handles the credit ledger and user balances
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new credit repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Change describes one balance movement to apply
type Change struct {
	UserID      uuid.UUID
	Type        EntryType
	Amount      int64
	Ref         *Reference
	Description string
	Metadata    Metadata
}

// Apply opens a transaction, applies the change, and commits
func (r *Repository) Apply(ctx context.Context, ch Change) (*LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin ledger transaction")
		return nil, ErrInternal
	}
	defer tx.Rollback()

	entry, err := r.ApplyTx(ctx, tx, ch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Failed to commit ledger transaction")
		return nil, ErrInternal
	}

	return entry, nil
}

// ApplyTx applies a balance change inside the caller's transaction.
// The user row is locked FOR UPDATE so concurrent movements on the
// same balance serialize. Debits that would take the balance below
// zero fail with ErrInsufficientCredits.
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, ch Change) (*LedgerEntry, error) {
	if ch.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	var balance int64
	err := tx.GetContext(ctx, &balance,
		`SELECT credits FROM users WHERE id = $1 FOR UPDATE`, ch.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", ch.UserID.String()).Msg("Failed to lock user balance")
		return nil, ErrInternal
	}

	newBalance := balance + ch.Amount
	if newBalance < 0 {
		return nil, ErrInsufficientCredits
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET credits = $2, updated_at = NOW() WHERE id = $1`,
		ch.UserID, newBalance)
	if err != nil {
		log.Error().Err(err).Str("user_id", ch.UserID.String()).Msg("Failed to update balance")
		return nil, ErrInternal
	}

	entry := &LedgerEntry{
		ID:           uuid.New(),
		UserID:       ch.UserID,
		Type:         ch.Type,
		Amount:       ch.Amount,
		BalanceAfter: newBalance,
		Description:  ch.Description,
		Metadata:     ch.Metadata,
	}
	if ch.Ref != nil {
		entry.RefKind = &ch.Ref.Kind
		entry.RefID = &ch.Ref.ID
	}

	query := `
		INSERT INTO credit_ledger (id, user_id, type, amount, balance_after, ref_kind, ref_id, description, metadata)
		VALUES (:id, :user_id, :type, :amount, :balance_after, :ref_kind, :ref_id, :description, :metadata)
		RETURNING created_at`

	rows, err := tx.NamedQuery(query, entry)
	if err != nil {
		log.Error().Err(err).Str("user_id", ch.UserID.String()).Msg("Failed to insert ledger entry")
		return nil, ErrInternal
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&entry.CreatedAt); err != nil {
			log.Error().Err(err).Msg("Failed to scan ledger entry timestamp")
			return nil, ErrInternal
		}
	}

	return entry, nil
}

// GetBalance reads the current credit balance for a user
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT credits FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to get balance")
		return 0, ErrInternal
	}
	return balance, nil
}

// ListEntries returns a page of ledger entries, newest first
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]LedgerEntry, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM credit_ledger WHERE user_id = $1`, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to count ledger entries")
		return nil, 0, ErrInternal
	}

	entries := []LedgerEntry{}
	query := `
		SELECT id, user_id, type, amount, balance_after, ref_kind, ref_id, description, metadata, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	err = r.db.SelectContext(ctx, &entries, query, userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list ledger entries")
		return nil, 0, ErrInternal
	}

	return entries, total, nil
}

// BeginTx starts a transaction for callers composing ledger writes
// with their own inserts
func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}
