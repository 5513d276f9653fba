package orchestrator

import (
	"errors"

	"resume-match/internal/account"
)

// Category groups failures that share one user-facing message.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAnalysis   Category = "analysis"
	CategoryFile       Category = "file"
	CategoryHistory    Category = "history"
	CategoryAuth       Category = "auth"
)

const (
	MsgValidation = "Please provide both a resume and a job description."
	MsgAnalysis   = "Something went wrong during analysis. Please try again."
	MsgFile       = "Failed to read the selected file."
	MsgHistory    = "Could not update your report history. Please try again."
	MsgAuth       = "Failed to authenticate. Please try again."

	MsgInvalidCredentials = "Invalid email or password."
	MsgEmailInUse         = "An account with this email already exists."
	MsgWeakPassword       = "Password should be at least 6 characters."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgPasswordMismatch   = "Passwords don't match!"
	MsgProfileNotFound    = "User profile not found."

	MsgAdminLoad   = "Couldn't load users. Check your permissions."
	MsgAdminDelete = "User deletion failed."
)

// Message returns the fixed message for a category.
func Message(category Category) string {
	switch category {
	case CategoryValidation:
		return MsgValidation
	case CategoryAnalysis:
		return MsgAnalysis
	case CategoryFile:
		return MsgFile
	case CategoryHistory:
		return MsgHistory
	default:
		return MsgAuth
	}
}

// authMessage maps store errors to the auth modal's messages.
func authMessage(err error) string {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, account.ErrEmailInUse):
		return MsgEmailInUse
	case errors.Is(err, account.ErrWeakPassword):
		return MsgWeakPassword
	case errors.Is(err, account.ErrInvalidEmail):
		return MsgInvalidEmail
	case errors.Is(err, account.ErrProfileNotFound):
		return MsgProfileNotFound
	default:
		return MsgAuth
	}
}
