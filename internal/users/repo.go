package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("user already exists")
)

// Repo is the profile collection keyed by account id. Profiles are created
// with IsAdmin=false; the flag is only changed out of band.
type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, userID string) error
}
