package credentials

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailInUse = errors.New("email already in use")
)

// Repo stores accounts. Emails are unique case-insensitively.
type Repo interface {
	Create(ctx context.Context, account Account) error
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	Delete(ctx context.Context, id string) error
}
