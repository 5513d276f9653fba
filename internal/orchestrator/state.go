package orchestrator

import (
	"errors"
	"strings"

	"resume-match/internal/analysis"
	"resume-match/internal/reports"
	"resume-match/internal/users"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseInFlight Phase = "inFlight"
	PhaseReady    Phase = "ready"
	PhaseFailed   Phase = "failed"
)

type Modal string

const (
	ModalNone    Modal = "none"
	ModalAuth    Modal = "auth"
	ModalHistory Modal = "history"
	ModalAdmin   Modal = "admin"
)

type AuthMode string

const (
	AuthLogin  AuthMode = "login"
	AuthSignup AuthMode = "signup"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var (
	ErrValidation        = errors.New("resume and job description are required")
	ErrAnalysisInFlight  = errors.New("analysis already in flight")
	ErrNotReady          = errors.New("no analysis result")
	ErrReportNotFound    = errors.New("report not in history")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNotAdmin          = errors.New("admin privilege required")
	ErrCannotDeleteAdmin = errors.New("admins cannot be deleted")
	ErrUserNotListed     = errors.New("user not in admin list")
	ErrRegistryClosed    = errors.New("session registry closed")
)

// AdminView is the admin modal's data.
type AdminView struct {
	Users   []users.User `json:"users"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
}

// State is everything the view renders. Transitions never mutate the
// receiver; they return a new State that shares no slices with it.
type State struct {
	User *users.User

	ResumeText     string
	ResumeFile     *analysis.UploadedFile
	JobDescription string

	Phase  Phase
	Result *analysis.Result
	Error  string

	Modal     Modal
	AuthMode  AuthMode
	AuthError string

	Theme Theme

	History        []reports.SavedReport
	HistoryLoading bool
	ReportSaved    bool

	Admin AdminView

	TornDown bool
}

// Initial is the state of a fresh client.
func Initial(theme Theme) State {
	if theme != ThemeLight {
		theme = ThemeDark
	}
	return State{Phase: PhaseIdle, Modal: ModalNone, AuthMode: AuthLogin, Theme: theme, History: []reports.SavedReport{}}
}

// ScrollLocked is true while any modal is open.
func (s State) ScrollLocked() bool {
	return !s.TornDown && s.Modal != ModalNone
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool { return s.User != nil }

// Source returns the active resume source.
func (s State) Source() analysis.ResumeSource {
	if s.ResumeFile != nil {
		file := *s.ResumeFile
		return analysis.ResumeSource{File: &file}
	}
	return analysis.ResumeSource{Text: s.ResumeText}
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		if s.User.Email != nil {
			email := *s.User.Email
			u.Email = &email
		}
		out.User = &u
	}
	if s.ResumeFile != nil {
		f := *s.ResumeFile
		out.ResumeFile = &f
	}
	if s.Result != nil {
		r := s.Result.Clone()
		out.Result = &r
	}
	out.History = cloneHistory(s.History)
	if s.Admin.Users != nil {
		out.Admin.Users = append([]users.User(nil), s.Admin.Users...)
	}
	return out
}

func cloneHistory(in []reports.SavedReport) []reports.SavedReport {
	out := make([]reports.SavedReport, len(in))
	for i, r := range in {
		out[i] = r
		out[i].Result = r.Result.Clone()
	}
	return out
}

// WithResumeText makes pasted text the active source and drops any file.
func (s State) WithResumeText(text string) State {
	out := s.clone()
	out.ResumeText = text
	out.ResumeFile = nil
	return out
}

// WithResumeFile makes an uploaded file the active source and drops any text.
func (s State) WithResumeFile(file analysis.UploadedFile) State {
	out := s.clone()
	out.ResumeFile = &file
	out.ResumeText = ""
	if out.Error == MsgFile {
		out.Error = ""
	}
	return out
}

func (s State) WithJobDescription(jd string) State {
	out := s.clone()
	out.JobDescription = jd
	return out
}

// BeginAnalysis moves to inFlight when both inputs are present. Otherwise it
// returns the validation message and ErrValidation without changing phase.
func (s State) BeginAnalysis() (State, error) {
	out := s.clone()
	if strings.TrimSpace(s.JobDescription) == "" || !s.hasResume() {
		out.Error = MsgValidation
		return out, ErrValidation
	}
	if s.Phase == PhaseInFlight {
		return out, ErrAnalysisInFlight
	}
	out.Phase = PhaseInFlight
	out.Result = nil
	out.Error = ""
	out.ReportSaved = false
	return out, nil
}

func (s State) hasResume() bool {
	if s.ResumeFile != nil {
		return s.ResumeFile.Data != ""
	}
	return strings.TrimSpace(s.ResumeText) != ""
}

func (s State) AnalysisSucceeded(result analysis.Result) State {
	out := s.clone()
	r := result.Clone()
	out.Phase = PhaseReady
	out.Result = &r
	out.Error = ""
	out.ReportSaved = false
	return out
}

func (s State) AnalysisFailed() State {
	out := s.clone()
	out.Phase = PhaseFailed
	out.Result = nil
	out.Error = MsgAnalysis
	return out
}

// LoadReport shows a saved report directly, closes the history view and
// clears the saved flag.
func (s State) LoadReport(report reports.SavedReport) State {
	out := s.AnalysisSucceeded(report.Result)
	if out.Modal == ModalHistory {
		out.Modal = ModalNone
	}
	return out
}

// LoadShared shows a result decoded from a share link.
func (s State) LoadShared(result analysis.Result) State {
	return s.AnalysisSucceeded(result)
}

// OpenAuth shows the auth modal; any other modal closes.
func (s State) OpenAuth(mode AuthMode) State {
	out := s.clone()
	if mode != AuthSignup {
		mode = AuthLogin
	}
	out.Modal = ModalAuth
	out.AuthMode = mode
	out.AuthError = ""
	return out
}

func (s State) OpenHistory() State {
	out := s.clone()
	out.Modal = ModalHistory
	return out
}

func (s State) OpenAdmin() State {
	out := s.clone()
	out.Modal = ModalAdmin
	out.Admin = AdminView{Loading: true}
	return out
}

func (s State) CloseModal() State {
	out := s.clone()
	out.Modal = ModalNone
	out.AuthError = ""
	return out
}

func (s State) ToggleTheme() State {
	out := s.clone()
	if s.Theme == ThemeLight {
		out.Theme = ThemeDark
	} else {
		out.Theme = ThemeLight
	}
	return out
}

// SessionChanged replaces the session. Becoming anonymous clears history and
// closes views that need an account; becoming authenticated closes the auth
// modal and marks history as loading.
func (s State) SessionChanged(user *users.User) State {
	out := s.clone()
	if user == nil {
		out.User = nil
		out.History = []reports.SavedReport{}
		out.HistoryLoading = false
		out.Admin = AdminView{}
		if out.Modal == ModalHistory || out.Modal == ModalAdmin {
			out.Modal = ModalNone
		}
		return out
	}
	u := *user
	out.User = &u
	out.HistoryLoading = true
	if out.Modal == ModalAuth {
		out.Modal = ModalNone
		out.AuthError = ""
	}
	return out
}

func (s State) HistoryLoaded(list []reports.SavedReport) State {
	out := s.clone()
	out.History = cloneHistory(list)
	out.HistoryLoading = false
	return out
}

func (s State) MarkReportSaved() State {
	out := s.clone()
	out.ReportSaved = true
	return out
}

// Fail shows the fixed message for category. Auth failures land in the auth
// modal.
func (s State) Fail(category Category) State {
	out := s.clone()
	switch category {
	case CategoryAuth:
		out.AuthError = MsgAuth
	case CategoryHistory:
		out.Error = MsgHistory
		out.HistoryLoading = false
	default:
		out.Error = Message(category)
	}
	return out
}

// AuthFailed shows a specific auth message in the auth modal.
func (s State) AuthFailed(message string) State {
	out := s.clone()
	out.AuthError = message
	return out
}

func (s State) AdminLoaded(list []users.User) State {
	out := s.clone()
	out.Admin = AdminView{Users: append([]users.User{}, list...)}
	return out
}

func (s State) AdminFailed(message string) State {
	out := s.clone()
	out.Admin.Loading = false
	out.Admin.Error = message
	return out
}

func (s State) AdminUserDeleted(userID string) State {
	out := s.clone()
	kept := make([]users.User, 0, len(out.Admin.Users))
	for _, u := range out.Admin.Users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	out.Admin.Users = kept
	out.Admin.Error = ""
	return out
}

// Teardown closes every modal and releases the scroll lock.
func (s State) Teardown() State {
	out := s.clone()
	out.Modal = ModalNone
	out.TornDown = true
	return out
}
