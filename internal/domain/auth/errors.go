package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountBanned      = errors.New("account is banned")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrInternal           = errors.New("internal error")
)
