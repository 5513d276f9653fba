package users

import "time"

// User is the profile document stored for every account. Email is nil when
// the account has none on record.
type User struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"-"`
}

// EmailOrEmpty returns the email or "".
func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// StringPtr returns nil for an empty string.
func StringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
