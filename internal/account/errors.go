package account

import (
	"errors"

	"resume-match/internal/credentials"
)

var (
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")

	ErrInvalidCredentials = credentials.ErrInvalidCredentials
	ErrEmailInUse         = credentials.ErrEmailInUse
	ErrWeakPassword       = credentials.ErrWeakPassword
	ErrInvalidEmail       = credentials.ErrInvalidEmail
)
