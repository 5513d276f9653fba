package orchestrator

import (
	"time"

	"resume-match/internal/analysis"
	"resume-match/internal/users"
)

// View is the JSON the browser renders. The uploaded file's bytes are never
// echoed back.
type View struct {
	User           *users.User   `json:"user"`
	ResumeText     string        `json:"resumeText"`
	ResumeFileName string        `json:"resumeFileName,omitempty"`
	JobDescription string        `json:"jobDescription"`
	Analysis       AnalysisView  `json:"analysis"`
	Error          string        `json:"error,omitempty"`
	Modal          Modal         `json:"modal"`
	AuthMode       AuthMode      `json:"authMode"`
	AuthError      string        `json:"authError,omitempty"`
	Theme          Theme         `json:"theme"`
	ScrollLocked   bool          `json:"scrollLocked"`
	History        []HistoryItem `json:"history"`
	HistoryLoading bool          `json:"historyLoading"`
	ReportSaved    bool          `json:"reportSaved"`
	CanSubmit      bool          `json:"canSubmit"`
	CanSave        bool          `json:"canSave"`
	Admin          *AdminView    `json:"admin,omitempty"`
}

type AnalysisView struct {
	Phase     Phase            `json:"phase"`
	Result    *analysis.Result `json:"result,omitempty"`
	ScoreBand string           `json:"scoreBand,omitempty"`
}

// HistoryItem is a saved report as listed in the history modal.
type HistoryItem struct {
	analysis.Result
	ID      string    `json:"id"`
	SavedAt time.Time `json:"savedAt"`
}

// View projects the state for rendering.
func (s State) View() View {
	st := s.clone()
	v := View{
		User:           st.User,
		ResumeText:     st.ResumeText,
		JobDescription: st.JobDescription,
		Analysis:       AnalysisView{Phase: st.Phase, Result: st.Result},
		Error:          st.Error,
		Modal:          st.Modal,
		AuthMode:       st.AuthMode,
		AuthError:      st.AuthError,
		Theme:          st.Theme,
		ScrollLocked:   st.ScrollLocked(),
		History:        make([]HistoryItem, 0, len(st.History)),
		HistoryLoading: st.HistoryLoading,
		ReportSaved:    st.ReportSaved,
		CanSubmit:      st.Phase != PhaseInFlight,
		CanSave:        st.Authenticated() && st.Phase == PhaseReady && !st.ReportSaved,
	}
	if st.ResumeFile != nil {
		v.ResumeFileName = st.ResumeFile.Name
	}
	if st.Result != nil {
		v.Analysis.ScoreBand = analysis.ScoreBand(st.Result.MatchScore)
	}
	for _, r := range st.History {
		v.History = append(v.History, HistoryItem{Result: r.Result, ID: r.ID, SavedAt: r.SavedAt})
	}
	if st.Modal == ModalAdmin {
		admin := st.Admin
		v.Admin = &admin
	}
	return v
}
