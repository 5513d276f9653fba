package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"resume-match/internal/analysis"
	"resume-match/internal/prefs"
	"resume-match/internal/reports"
	"resume-match/internal/share"
	"resume-match/internal/shared/metrics"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/shared/util"
	"resume-match/internal/users"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, src analysis.ResumeSource, jobDescription string) (analysis.Result, error)
}

// Store is the account and document store as seen by one client.
type Store interface {
	SignUp(ctx context.Context, email, password string) (users.User, error)
	LogIn(ctx context.Context, email, password string) (users.User, error)
	SignInExternal(ctx context.Context, provider, email string) (users.User, error)
	LogOut(ctx context.Context) error
	OnSessionChange(fn func(*users.User)) (unsubscribe func())
	Restore(token string)
	Token() string
	ListAllUsers(ctx context.Context) ([]users.User, error)
	DeleteAccountAndData(ctx context.Context, userID string) error
	SaveReport(ctx context.Context, result analysis.Result) (reports.SavedReport, error)
	ListReports(ctx context.Context, userID string) ([]reports.SavedReport, error)
	DeleteReport(ctx context.Context, reportID string) error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Analyzer Analyzer
	Store    Store
	Prefs    prefs.Scoped
	// ShareBaseURL is the page URL share links point at.
	ShareBaseURL string
	Metrics      metrics.Recorder
}

// Controller owns one client's State. Remote calls run without the lock
// held and their results are applied when they return, so the last
// response to arrive wins.
type Controller struct {
	deps Deps

	mu          sync.Mutex
	state       State
	sessionGen  uint64
	unsubscribe func()

	wg sync.WaitGroup
}

// NewController loads the persisted theme and subscribes to session changes.
func NewController(ctx context.Context, deps Deps) *Controller {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	theme := ThemeDark
	if value, ok, err := deps.Prefs.Get(ctx, prefs.KeyTheme); err != nil {
		telemetry.Warn("prefs.load_failed", map[string]any{"client_hash": util.HashKey(deps.Prefs.ClientID), "error": err})
	} else if ok && Theme(value) == ThemeLight {
		theme = ThemeLight
	}

	c := &Controller{deps: deps, state: Initial(theme)}
	c.unsubscribe = deps.Store.OnSessionChange(c.sessionChanged)
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) signedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.User != nil
}

// Wait blocks until background history loads finish.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) apply(fn func(State) State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = fn(c.state)
	return c.state.clone()
}

func (c *Controller) sessionChanged(user *users.User) {
	c.mu.Lock()
	c.sessionGen++
	gen := c.sessionGen
	c.state = c.state.SessionChanged(user)
	c.mu.Unlock()

	if user == nil {
		return
	}
	userID := user.ID
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reloadHistory(context.Background(), gen, userID)
	}()
}

// reloadHistory fetches the user's reports and applies them unless the
// session changed in the meantime.
func (c *Controller) reloadHistory(ctx context.Context, gen uint64, userID string) {
	list, err := c.deps.Store.ListReports(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.sessionGen {
		return
	}
	if err != nil {
		telemetry.Error("history.load_failed", map[string]any{"user_id": userID, "error": err})
		c.state = c.state.Fail(CategoryHistory)
		return
	}
	c.state = c.state.HistoryLoaded(list)
}

func (c *Controller) SetResumeText(text string) State {
	return c.apply(func(s State) State { return s.WithResumeText(text) })
}

// SetResumeFile stores an uploaded file. data has already been read fully.
func (c *Controller) SetResumeFile(name, mimeType string, data []byte) State {
	file := analysis.UploadedFile{
		Name:     name,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	return c.apply(func(s State) State { return s.WithResumeFile(file) })
}

// FileReadFailed records that reading an upload failed.
func (c *Controller) FileReadFailed(err error) State {
	telemetry.Warn("resume.file_read_failed", map[string]any{"error": err})
	return c.apply(func(s State) State { return s.Fail(CategoryFile) })
}

func (c *Controller) SetJobDescription(jd string) State {
	return c.apply(func(s State) State { return s.WithJobDescription(jd) })
}

// Submit validates the inputs, runs one analysis and applies its outcome.
// Validation failures make no remote call. A submit while one is in flight
// returns ErrAnalysisInFlight.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	c.mu.Lock()
	next, err := c.state.BeginAnalysis()
	if errors.Is(err, ErrValidation) {
		c.state = next
	}
	if err != nil {
		defer c.mu.Unlock()
		return c.state.clone(), err
	}
	c.state = next
	src, jd := next.Source(), next.JobDescription
	c.mu.Unlock()

	// The call is not cancellable once issued.
	result, err := c.deps.Analyzer.Analyze(context.WithoutCancel(ctx), src, jd)
	if err != nil {
		fields := map[string]any{"client_hash": util.HashKey(c.deps.Prefs.ClientID), "error": err}
		var aerr *analysis.Error
		if errors.As(err, &aerr) {
			fields["op"] = aerr.Op
			fields["cause"] = aerr.Cause()
		}
		telemetry.Error("session.analysis_failed", fields)
		return c.apply(func(s State) State { return s.AnalysisFailed() }), nil
	}
	return c.apply(func(s State) State { return s.AnalysisSucceeded(result) }), nil
}

func (c *Controller) OpenAuth(mode AuthMode) State {
	return c.apply(func(s State) State { return s.OpenAuth(mode) })
}

// LogIn signs in from the auth modal. Failures are shown in the modal.
func (c *Controller) LogIn(ctx context.Context, email, password string) State {
	if _, err := c.deps.Store.LogIn(ctx, email, password); err != nil {
		telemetry.Warn("auth.login_failed", map[string]any{"email_hash": util.HashKey(email), "error": err})
		return c.apply(func(s State) State { return s.AuthFailed(authMessage(err)) })
	}
	return c.apply(func(s State) State { return s.CloseModal() })
}

// SignUp registers from the auth modal after checking the confirmation
// locally.
func (c *Controller) SignUp(ctx context.Context, email, password, confirm string) State {
	if password != confirm {
		return c.apply(func(s State) State { return s.AuthFailed(MsgPasswordMismatch) })
	}
	if _, err := c.deps.Store.SignUp(ctx, email, password); err != nil {
		telemetry.Warn("auth.signup_failed", map[string]any{"email_hash": util.HashKey(email), "error": err})
		return c.apply(func(s State) State { return s.AuthFailed(authMessage(err)) })
	}
	return c.apply(func(s State) State { return s.CloseModal() })
}

// SignInExternal completes a sign-in verified by an identity provider.
func (c *Controller) SignInExternal(ctx context.Context, provider, email string) (State, error) {
	if _, err := c.deps.Store.SignInExternal(ctx, provider, email); err != nil {
		telemetry.Warn("auth.external_failed", map[string]any{"provider": provider, "error": err})
		return c.apply(func(s State) State { return s.Fail(CategoryAuth) }), err
	}
	return c.apply(func(s State) State { return s.CloseModal() }), nil
}

func (c *Controller) LogOut(ctx context.Context) State {
	if err := c.deps.Store.LogOut(ctx); err != nil {
		telemetry.Warn("auth.logout_failed", map[string]any{"error": err})
		return c.apply(func(s State) State { return s.Fail(CategoryAuth) })
	}
	return c.State()
}

// SessionToken is the store's token for the current session.
func (c *Controller) SessionToken() string {
	return c.deps.Store.Token()
}

func (c *Controller) OpenHistory() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Authenticated() {
		return c.state.clone(), ErrNotAuthenticated
	}
	c.state = c.state.OpenHistory()
	return c.state.clone(), nil
}

func (c *Controller) CloseModal() State {
	return c.apply(func(s State) State { return s.CloseModal() })
}

// SaveReport saves the ready result and then re-fetches history so the
// store's id and timestamp are authoritative.
func (c *Controller) SaveReport(ctx context.Context) (State, error) {
	c.mu.Lock()
	if !c.state.Authenticated() {
		defer c.mu.Unlock()
		return c.state.clone(), ErrNotAuthenticated
	}
	if c.state.Phase != PhaseReady || c.state.Result == nil {
		defer c.mu.Unlock()
		return c.state.clone(), ErrNotReady
	}
	result := c.state.Result.Clone()
	userID := c.state.User.ID
	gen := c.sessionGen
	c.mu.Unlock()

	if _, err := c.deps.Store.SaveReport(ctx, result); err != nil {
		telemetry.Error("history.save_failed", map[string]any{"user_id": userID, "error": err})
		return c.apply(func(s State) State { return s.Fail(CategoryHistory) }), nil
	}
	c.apply(func(s State) State { return s.MarkReportSaved() })
	c.reloadHistory(ctx, gen, userID)
	return c.State(), nil
}

// DeleteReport removes one saved report and then re-fetches history.
func (c *Controller) DeleteReport(ctx context.Context, reportID string) (State, error) {
	c.mu.Lock()
	if !c.state.Authenticated() {
		defer c.mu.Unlock()
		return c.state.clone(), ErrNotAuthenticated
	}
	userID := c.state.User.ID
	gen := c.sessionGen
	c.mu.Unlock()

	if err := c.deps.Store.DeleteReport(ctx, reportID); err != nil {
		telemetry.Error("history.delete_failed", map[string]any{"user_id": userID, "report_id": reportID, "error": err})
		return c.apply(func(s State) State { return s.Fail(CategoryHistory) }), nil
	}
	c.reloadHistory(ctx, gen, userID)
	return c.State(), nil
}

// LoadReport shows a report from the loaded history.
func (c *Controller) LoadReport(reportID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.state.History {
		if r.ID == reportID {
			c.state = c.state.LoadReport(r)
			return c.state.clone(), nil
		}
	}
	return c.state.clone(), ErrReportNotFound
}

// OpenAdmin opens the admin modal and loads every user.
func (c *Controller) OpenAdmin(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.User == nil || !c.state.User.IsAdmin {
		defer c.mu.Unlock()
		return c.state.clone(), ErrNotAdmin
	}
	c.state = c.state.OpenAdmin()
	c.mu.Unlock()

	list, err := c.deps.Store.ListAllUsers(ctx)
	if err != nil {
		telemetry.Error("admin.list_failed", map[string]any{"error": err})
		return c.apply(func(s State) State { return s.AdminFailed(MsgAdminLoad) }), nil
	}
	return c.apply(func(s State) State { return s.AdminLoaded(list) }), nil
}

// DeleteUser deletes a listed non-admin user with all their data.
func (c *Controller) DeleteUser(ctx context.Context, userID string) (State, error) {
	c.mu.Lock()
	var target *users.User
	for i := range c.state.Admin.Users {
		if c.state.Admin.Users[i].ID == userID {
			u := c.state.Admin.Users[i]
			target = &u
		}
	}
	if target == nil {
		defer c.mu.Unlock()
		return c.state.clone(), ErrUserNotListed
	}
	if target.IsAdmin {
		defer c.mu.Unlock()
		return c.state.clone(), ErrCannotDeleteAdmin
	}
	c.mu.Unlock()

	if err := c.deps.Store.DeleteAccountAndData(ctx, userID); err != nil {
		telemetry.Error("admin.delete_failed", map[string]any{"target_user_id": userID, "error": err})
		return c.apply(func(s State) State { return s.AdminFailed(MsgAdminDelete) }), nil
	}
	return c.apply(func(s State) State { return s.AdminUserDeleted(userID) }), nil
}

// ToggleTheme flips the theme and persists it.
func (c *Controller) ToggleTheme(ctx context.Context) State {
	next := c.apply(func(s State) State { return s.ToggleTheme() })
	if err := c.deps.Prefs.Set(ctx, prefs.KeyTheme, string(next.Theme)); err != nil {
		telemetry.Warn("prefs.save_failed", map[string]any{"client_hash": util.HashKey(c.deps.Prefs.ClientID), "error": err})
	}
	return next
}

// ShareLink encodes the ready result into a share URL.
func (c *Controller) ShareLink() (string, error) {
	c.mu.Lock()
	if c.state.Phase != PhaseReady || c.state.Result == nil {
		c.mu.Unlock()
		return "", ErrNotReady
	}
	result := c.state.Result.Clone()
	c.mu.Unlock()
	return share.Encode(result, c.deps.ShareBaseURL)
}

// OpenSharedLink decodes a share fragment once and returns the URL without
// it. Undecodable links are ignored.
func (c *Controller) OpenSharedLink(rawURL string) (State, string) {
	stripped := share.StripFragment(rawURL)
	if !share.HasFragment(rawURL) {
		return c.State(), stripped
	}
	result, ok := share.Decode(rawURL)
	c.deps.Metrics.ShareDecoded(ok)
	if !ok {
		return c.State(), stripped
	}
	return c.apply(func(s State) State { return s.LoadShared(result) }), stripped
}

// Teardown releases the scroll lock, drops the session subscription and
// waits for background work.
func (c *Controller) Teardown() State {
	c.mu.Lock()
	c.state = c.state.Teardown()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.sessionGen++
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.Wait()
	return c.State()
}

