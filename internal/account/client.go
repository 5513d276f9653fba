package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"resume-match/internal/analysis"
	"resume-match/internal/credentials"
	"resume-match/internal/reports"
	"resume-match/internal/shared/auth"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/users"
)

// Client is one browser client's handle on the Backend. It tracks the
// current session and notifies listeners whenever it changes.
//
// Listeners run synchronously on the goroutine that changed the session and
// must not call back into session-changing methods.
type Client struct {
	backend *Backend

	// notifyMu orders session updates with their delivery.
	notifyMu sync.Mutex

	mu         sync.Mutex
	user       *users.User
	token      string
	generation uint64
	restoring  bool
	listeners  map[int]func(*users.User)
	nextID     int

	wg sync.WaitGroup
}

// SignUp creates credentials and then the profile. If the profile write
// fails the account remains without a profile and the error is returned.
func (c *Client) SignUp(ctx context.Context, email, password string) (users.User, error) {
	account, err := c.backend.Credentials.Register(ctx, email, password)
	if err != nil {
		return users.User{}, err
	}
	profile := users.User{ID: account.ID, Email: users.StringPtr(account.Email), IsAdmin: false}
	if err := c.backend.Users.Create(ctx, profile); err != nil {
		telemetry.Error("account.signup.profile_failed", map[string]any{"user_id": account.ID, "error": err})
		return users.User{}, fmt.Errorf("create profile: %w", err)
	}
	if err := c.startSession(account, profile); err != nil {
		return users.User{}, err
	}
	return profile, nil
}

// LogIn verifies the password and loads the profile. A missing profile is
// reported as ErrProfileNotFound and the session stays anonymous.
func (c *Client) LogIn(ctx context.Context, email, password string) (users.User, error) {
	account, err := c.backend.Credentials.Verify(ctx, email, password)
	if err != nil {
		return users.User{}, err
	}
	profile, err := c.backend.profile(ctx, account.ID)
	if err != nil {
		return users.User{}, err
	}
	if profile == nil {
		return users.User{}, ErrProfileNotFound
	}
	if err := c.startSession(account, *profile); err != nil {
		return users.User{}, err
	}
	return *profile, nil
}

// SignInExternal signs in with an email verified by an external identity
// provider, creating the account and profile on first use.
func (c *Client) SignInExternal(ctx context.Context, provider, email string) (users.User, error) {
	account, _, err := c.backend.Credentials.FindOrCreateExternal(ctx, provider, email)
	if err != nil {
		return users.User{}, err
	}
	profile, err := c.backend.profile(ctx, account.ID)
	if err != nil {
		return users.User{}, err
	}
	if profile == nil {
		created := users.User{ID: account.ID, Email: users.StringPtr(account.Email)}
		if err := c.backend.Users.Create(ctx, created); err != nil && !errors.Is(err, users.ErrExists) {
			return users.User{}, fmt.Errorf("create profile: %w", err)
		}
		profile = &created
	}
	if err := c.startSession(account, *profile); err != nil {
		return users.User{}, err
	}
	return *profile, nil
}

func (c *Client) LogOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.setSession(nil, "")
	return nil
}

// OnSessionChange registers fn. It is invoked with the current session once,
// after any pending restoration completes, and again on every change. Each
// invocation is the full session; nil means anonymous.
func (c *Client) OnSessionChange(fn func(*users.User)) (unsubscribe func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	pending := c.restoring
	current := cloneUser(c.user)
	c.mu.Unlock()

	if !pending {
		fn(current)
	}
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Restore resumes a session from a signed token in the background.
// Listeners receive the outcome; an invalid token leaves the client
// anonymous. A sign-in or sign-out that happens meanwhile wins.
func (c *Client) Restore(token string) {
	c.mu.Lock()
	c.restoring = true
	generation := c.generation
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx := context.Background()

		var profile *users.User
		claims, err := c.backend.Tokens.Verify(token)
		if err == nil {
			profile, err = c.backend.profile(ctx, claims.Sub)
		}
		if err != nil {
			telemetry.Info("account.restore.rejected", map[string]any{"error": err})
		}
		if profile == nil {
			token = ""
		}

		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		c.mu.Lock()
		c.restoring = false
		if c.generation != generation {
			// Superseded: still give listeners registered during the
			// restore their first delivery.
			current := cloneUser(c.user)
			listeners := c.snapshotListeners()
			c.mu.Unlock()
			deliver(listeners, current)
			return
		}
		c.generation++
		c.user = cloneUser(profile)
		c.token = token
		listeners := c.snapshotListeners()
		c.mu.Unlock()
		deliver(listeners, cloneUser(profile))
	}()
}

// Wait blocks until background restoration finishes.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Token is the signed session token, or "" when anonymous.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CurrentUser returns a copy of the session user or nil.
func (c *Client) CurrentUser() *users.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneUser(c.user)
}

// GetProfile returns nil when no profile exists.
func (c *Client) GetProfile(ctx context.Context, userID string) (*users.User, error) {
	return c.backend.profile(ctx, userID)
}

// ListAllUsers is restricted to admins; order is unspecified.
func (c *Client) ListAllUsers(ctx context.Context) ([]users.User, error) {
	caller, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	return c.backend.listAllUsers(ctx, caller.ID)
}

// DeleteAccountAndData removes a user's reports, profile and credentials.
// Admins may delete anyone; other users only themselves.
func (c *Client) DeleteAccountAndData(ctx context.Context, userID string) error {
	caller, err := c.requireSession()
	if err != nil {
		return err
	}
	if err := c.backend.deleteAccountAndData(ctx, caller.ID, userID); err != nil {
		return err
	}
	if caller.ID == userID {
		c.setSession(nil, "")
	}
	return nil
}

// SaveReport stores result in the session user's history.
func (c *Client) SaveReport(ctx context.Context, result analysis.Result) (reports.SavedReport, error) {
	caller, err := c.requireSession()
	if err != nil {
		return reports.SavedReport{}, err
	}
	return c.backend.Reports.Save(ctx, caller.ID, result)
}

// ListReports returns userID's reports newest first. Only the owner may list.
func (c *Client) ListReports(ctx context.Context, userID string) ([]reports.SavedReport, error) {
	caller, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	if caller.ID != userID {
		return nil, ErrPermissionDenied
	}
	return c.backend.Reports.ListByUser(ctx, userID)
}

// DeleteReport removes one report owned by the session user, or any report
// when the caller is an admin.
func (c *Client) DeleteReport(ctx context.Context, reportID string) error {
	caller, err := c.requireSession()
	if err != nil {
		return err
	}
	report, err := c.backend.Reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if report.UserID != caller.ID {
		if err := c.backend.requireAdmin(ctx, caller.ID); err != nil {
			return err
		}
	}
	if err := c.backend.Reports.Delete(ctx, reportID); err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (c *Client) requireSession() (*users.User, error) {
	user := c.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func (c *Client) startSession(account credentials.Account, profile users.User) error {
	token, err := c.backend.Tokens.Sign(auth.Claims{Sub: account.ID, Email: account.Email})
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	c.setSession(&profile, token)
	return nil
}

func (c *Client) setSession(user *users.User, token string) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.generation++
	c.user = cloneUser(user)
	c.token = token
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	deliver(listeners, cloneUser(user))
}

// snapshotListeners must be called with mu held.
func (c *Client) snapshotListeners() []func(*users.User) {
	out := make([]func(*users.User), 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func deliver(listeners []func(*users.User), user *users.User) {
	for _, fn := range listeners {
		fn(cloneUser(user))
	}
}

func cloneUser(user *users.User) *users.User {
	if user == nil {
		return nil
	}
	out := *user
	if user.Email != nil {
		email := *user.Email
		out.Email = &email
	}
	return &out
}
