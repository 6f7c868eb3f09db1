package user

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user access level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status represents account state
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// User represents a registered account
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Credits       int64      `db:"credits" json:"credits"`
	Role          Role       `db:"role" json:"role"`
	Status        Status     `db:"status" json:"status"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsBanned reports whether the account is blocked from authenticating
func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}

// IsAdmin reports whether the account has admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicProfile is the sanitized view returned to clients
type PublicProfile struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Credits       int64      `json:"credits"`
	Role          Role       `json:"role"`
	Status        Status     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToPublicProfile converts a User to its client-facing view
func (u *User) ToPublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Credits:       u.Credits,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}
