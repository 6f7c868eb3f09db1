package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/domain/user"
	"github.com/reelworks/reelworks-api/internal/pkg/jwt"
	"github.com/reelworks/reelworks-api/internal/pkg/password"
)

// Credits every new account starts with, granted as a ledger entry
// so the welcome balance is auditable like any other movement.
const welcomeCredits = 5

// Service handles authentication
type Service struct {
	users   *user.Repository
	credits *credit.Repository
	jwt     *jwt.Service
	redis   *redis.Client
}

// NewService creates a new auth service
func NewService(users *user.Repository, credits *credit.Repository, jwtService *jwt.Service, redisClient *redis.Client) *Service {
	return &Service{
		users:   users,
		credits: credits,
		jwt:     jwtService,
		redis:   redisClient,
	}
}

// Register creates an account and grants the welcome credits in the
// same transaction
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	tx, err := s.users.BeginTx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin registration transaction")
		return nil, ErrInternal
	}
	defer tx.Rollback()

	hash, err := password.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		return nil, ErrInternal
	}

	u := &user.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Credits:      0,
		Role:         user.RoleUser,
		Status:       user.StatusActive,
	}

	if err := s.users.CreateTx(ctx, tx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, ErrInternal
	}

	entry, err := s.credits.ApplyTx(ctx, tx, credit.Change{
		UserID:      u.ID,
		Type:        credit.EntryBonus,
		Amount:      welcomeCredits,
		Description: "welcome bonus",
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("Failed to grant welcome credits")
		return nil, ErrInternal
	}
	u.Credits = entry.BalanceAfter

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Failed to commit registration")
		return nil, ErrInternal
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Str("email", u.Email).Msg("User registered")

	return &AuthResponse{User: u.ToPublicProfile(), Tokens: *tokens}, nil
}

// Login authenticates by email and password
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn the same time as a real check so timing does not
			// reveal whether the email exists
			password.Verify(req.Password, "$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalid")
			return nil, ErrInvalidCredentials
		}
		return nil, ErrInternal
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if u.IsBanned() {
		return nil, ErrAccountBanned
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID, time.Now()); err != nil {
		// login still succeeds, the stamp is best effort
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("Failed to stamp last login")
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Msg("User logged in")

	return &AuthResponse{User: u.ToPublicProfile(), Tokens: *tokens}, nil
}

// Refresh rotates a valid refresh token for a new pair. The old
// token is consumed; presenting it twice fails the second time.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	key := refreshKey(claims.UserID, claims.ID)
	stored, err := s.redis.Get(ctx, key).Result()
	if err != nil || stored != jwt.HashRefreshToken(refreshToken) {
		return nil, ErrInvalidToken
	}
	s.redis.Del(ctx, key)

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if u.IsBanned() {
		return nil, ErrAccountBanned
	}

	return s.issueTokens(ctx, u)
}

// Logout revokes a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		// nothing to revoke
		return nil
	}

	s.redis.Del(ctx, refreshKey(claims.UserID, claims.ID))
	return nil
}

// Me returns the caller's profile
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.PublicProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ToPublicProfile(), nil
}

func (s *Service) issueTokens(ctx context.Context, u *user.User) (*TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(u.ID, string(u.Role), u.IsBanned())
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign access token")
		return nil, ErrInternal
	}

	refresh, jti, expiresAt, err := s.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign refresh token")
		return nil, ErrInternal
	}

	// store a hash keyed by jti so a leaked redis dump cannot replay
	// the token itself
	err = s.redis.Set(ctx, refreshKey(u.ID, jti), jwt.HashRefreshToken(refresh), time.Until(expiresAt)).Err()
	if err != nil {
		log.Error().Err(err).Msg("Failed to store refresh token")
		return nil, ErrInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func refreshKey(userID uuid.UUID, jti string) string {
	return "refresh:" + userID.String() + ":" + jti
}
