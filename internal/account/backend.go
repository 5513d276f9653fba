package account

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"resume-match/internal/credentials"
	"resume-match/internal/reports"
	"resume-match/internal/shared/auth"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/users"
)

// Backend is the shared account and document store. Permission checks that a
// hosted backend would enforce through its rules live here.
type Backend struct {
	Credentials *credentials.Service
	Users       users.Repo
	Reports     reports.Repo
	Tokens      *auth.Signer
}

func NewBackend(creds *credentials.Service, usersRepo users.Repo, reportsRepo reports.Repo, tokens *auth.Signer) *Backend {
	return &Backend{
		Credentials: creds,
		Users:       usersRepo,
		Reports:     reportsRepo,
		Tokens:      tokens,
	}
}

// NewClient returns a fresh anonymous client handle.
func (b *Backend) NewClient() *Client {
	return &Client{backend: b, listeners: make(map[int]func(*users.User))}
}

func (b *Backend) profile(ctx context.Context, userID string) (*users.User, error) {
	user, err := b.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (b *Backend) requireAdmin(ctx context.Context, callerID string) error {
	caller, err := b.profile(ctx, callerID)
	if err != nil {
		return err
	}
	if caller == nil || !caller.IsAdmin {
		return ErrPermissionDenied
	}
	return nil
}

func (b *Backend) listAllUsers(ctx context.Context, callerID string) ([]users.User, error) {
	if err := b.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return b.Users.List(ctx)
}

// deleteAccountAndData removes every report owned by userID concurrently and
// waits for all of them. Only when every report delete succeeded are the
// profile and then the credentials removed; otherwise the first error is
// returned and the account stays intact.
func (b *Backend) deleteAccountAndData(ctx context.Context, callerID, userID string) error {
	if callerID != userID {
		if err := b.requireAdmin(ctx, callerID); err != nil {
			return err
		}
	}

	owned, err := b.Reports.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	var g errgroup.Group
	for _, report := range owned {
		reportID := report.ID
		g.Go(func() error {
			if err := b.Reports.Delete(ctx, reportID); err != nil && !errors.Is(err, reports.ErrNotFound) {
				return fmt.Errorf("delete report %s: %w", reportID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.Warn("account.delete.aborted", map[string]any{"user_id": userID, "reports": len(owned), "error": err})
		return err
	}

	if err := b.Users.Delete(ctx, userID); err != nil && !errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := b.Credentials.Delete(ctx, userID); err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return fmt.Errorf("delete credentials: %w", err)
	}
	telemetry.Info("account.deleted", map[string]any{"user_id": userID, "reports": len(owned), "by": callerID})
	return nil
}
