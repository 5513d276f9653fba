package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email")
)

// Service is the authentication backend: it registers accounts and verifies
// passwords with bcrypt.
type Service struct {
	Repo Repo
	Cost int
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Cost: bcrypt.DefaultCost}
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, email, password string) (Account, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Account{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return Account{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
	}
	if err := s.Repo.Create(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Verify checks a password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, email, password string) (Account, error) {
	account, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if account.PasswordHash == "" {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// FindOrCreateExternal returns the account for an email verified by an
// external identity provider, creating one when absent. The bool reports
// whether the account was created.
func (s *Service) FindOrCreateExternal(ctx context.Context, provider, email string) (Account, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Account{}, false, ErrInvalidEmail
	}
	account, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, false, err
	}
	account = Account{ID: uuid.NewString(), Email: email, Provider: provider}
	if err := s.Repo.Create(ctx, account); err != nil {
		return Account{}, false, err
	}
	return account, true, nil
}

func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}
