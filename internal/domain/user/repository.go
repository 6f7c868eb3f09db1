package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Repository handles user persistence
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new user repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, password_hash, credits, role, status, email_verified, last_login, created_at, updated_at`

// GetByID fetches a user by primary key
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to get user by id")
		return nil, ErrInternal
	}

	return &u, nil
}

// GetByEmail fetches a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("Failed to get user by email")
		return nil, ErrInternal
	}

	return &u, nil
}

// CreateTx inserts a new user inside an existing transaction.
// Registration composes the insert with the welcome credit grant,
// so both land atomically.
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, u *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, credits, role, status, email_verified)
		VALUES (:id, :name, :email, :password_hash, :credits, :role, :status, :email_verified)
		RETURNING created_at, updated_at`

	rows, err := tx.NamedQuery(query, u)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		log.Error().Err(err).Str("email", u.Email).Msg("Failed to create user")
		return ErrInternal
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
			log.Error().Err(err).Msg("Failed to scan created user timestamps")
			return ErrInternal
		}
	}

	return nil
}

// UpdateLastLogin stamps the last successful authentication time
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to update last login")
		return ErrInternal
	}

	return nil
}

// BeginTx starts a transaction for multi-repository operations
func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}
