package credentials

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Account is the authentication record behind a profile. PasswordHash is
// empty for accounts that only sign in through an external provider.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
}
