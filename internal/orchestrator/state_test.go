package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match/internal/analysis"
	"resume-match/internal/reports"
	"resume-match/internal/users"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		JobTitle:           "Senior Backend Engineer",
		MatchScore:         72,
		Summary:            "Strong Go background.",
		MatchingKeywords:   []string{"Go", "PostgreSQL"},
		MissingKeywords:    []string{"Kubernetes"},
		Suggestions:        []analysis.Suggestion{{Title: "Add Kubernetes", Description: "Mention cluster work."}},
		OriginalResumeText: "Go developer",
		ImprovedResumeText: "Senior Go developer",
	}
}

func TestInitialDefaultsToDarkTheme(t *testing.T) {
	assert.Equal(t, ThemeDark, Initial("").Theme)
	assert.Equal(t, ThemeDark, Initial("sepia").Theme)
	assert.Equal(t, ThemeLight, Initial(ThemeLight).Theme)

	s := Initial(ThemeDark)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, ModalNone, s.Modal)
	assert.False(t, s.ScrollLocked())
}

func TestBeginAnalysisValidation(t *testing.T) {
	cases := []struct {
		name string
		s    State
	}{
		{"empty", Initial(ThemeDark)},
		{"no job description", Initial(ThemeDark).WithResumeText("resume")},
		{"blank job description", Initial(ThemeDark).WithResumeText("resume").WithJobDescription("  \n")},
		{"no resume", Initial(ThemeDark).WithJobDescription("jd")},
		{"blank resume", Initial(ThemeDark).WithResumeText("   ").WithJobDescription("jd")},
		{"empty file", Initial(ThemeDark).WithResumeFile(analysis.UploadedFile{Name: "cv.pdf", MimeType: "application/pdf"}).WithJobDescription("jd")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := tc.s.BeginAnalysis()
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, MsgValidation, next.Error)
			assert.Equal(t, tc.s.Phase, next.Phase)
		})
	}
}

func TestBeginAnalysisClearsPreviousOutcome(t *testing.T) {
	s := Initial(ThemeDark).WithResumeText("resume").WithJobDescription("jd")
	s = s.AnalysisSucceeded(sampleResult()).MarkReportSaved()

	next, err := s.BeginAnalysis()
	require.NoError(t, err)
	assert.Equal(t, PhaseInFlight, next.Phase)
	assert.Nil(t, next.Result)
	assert.Empty(t, next.Error)
	assert.False(t, next.ReportSaved)

	_, err = next.BeginAnalysis()
	require.ErrorIs(t, err, ErrAnalysisInFlight)
}

func TestFileResumeSatisfiesValidation(t *testing.T) {
	s := Initial(ThemeDark).
		WithResumeFile(analysis.UploadedFile{Name: "cv.pdf", MimeType: "application/pdf", Data: "JVBERi0="}).
		WithJobDescription("jd")
	next, err := s.BeginAnalysis()
	require.NoError(t, err)
	require.NotNil(t, next.Source().File)
	assert.Equal(t, "cv.pdf", next.Source().File.Name)
}

func TestScrollLockFollowsModals(t *testing.T) {
	s := Initial(ThemeDark)
	for _, open := range []State{s.OpenAuth(AuthSignup), s.OpenHistory(), s.OpenAdmin()} {
		assert.True(t, open.ScrollLocked())
		assert.False(t, open.CloseModal().ScrollLocked())
		assert.False(t, open.Teardown().ScrollLocked())
	}
}

func TestSessionChangedToAnonymousClearsHistory(t *testing.T) {
	user := users.User{ID: "u1", Email: users.StringPtr("ada@example.com")}
	s := Initial(ThemeDark).SessionChanged(&user)
	assert.True(t, s.HistoryLoading)

	s = s.HistoryLoaded([]reports.SavedReport{{ID: "r1", UserID: "u1", Result: sampleResult(), SavedAt: time.Now()}})
	s = s.OpenHistory()
	require.Len(t, s.History, 1)

	out := s.SessionChanged(nil)
	assert.Nil(t, out.User)
	assert.Empty(t, out.History)
	assert.Equal(t, ModalNone, out.Modal)
}

func TestSessionChangedClosesAuthModal(t *testing.T) {
	user := users.User{ID: "u1"}
	s := Initial(ThemeDark).OpenAuth(AuthLogin).AuthFailed(MsgInvalidCredentials)
	out := s.SessionChanged(&user)
	assert.Equal(t, ModalNone, out.Modal)
	assert.Empty(t, out.AuthError)
}

func TestLoadReportClosesHistory(t *testing.T) {
	report := reports.SavedReport{ID: "r1", Result: sampleResult()}
	s := Initial(ThemeDark).OpenHistory().MarkReportSaved()

	out := s.LoadReport(report)
	assert.Equal(t, PhaseReady, out.Phase)
	assert.Equal(t, ModalNone, out.Modal)
	assert.False(t, out.ReportSaved)
	require.NotNil(t, out.Result)
	assert.Equal(t, report.Result, *out.Result)
}

func TestTransitionsDoNotAlias(t *testing.T) {
	s := Initial(ThemeDark).HistoryLoaded([]reports.SavedReport{{ID: "r1", Result: sampleResult()}})
	s = s.AnalysisSucceeded(sampleResult())

	next := s.ToggleTheme()
	next.History[0].ID = "changed"
	next.Result.MatchingKeywords[0] = "changed"

	assert.Equal(t, "r1", s.History[0].ID)
	assert.Equal(t, "Go", s.Result.MatchingKeywords[0])
	assert.Equal(t, ThemeDark, s.Theme)
	assert.Equal(t, ThemeLight, next.Theme)
}

func TestFailMessages(t *testing.T) {
	s := Initial(ThemeDark)
	assert.Equal(t, MsgFile, s.Fail(CategoryFile).Error)
	assert.Equal(t, MsgHistory, s.Fail(CategoryHistory).Error)
	assert.Equal(t, MsgAuth, s.Fail(CategoryAuth).AuthError)
	assert.Empty(t, s.Fail(CategoryAuth).Error)
	assert.Equal(t, MsgAnalysis, s.AnalysisFailed().Error)
}

func TestAdminUserDeletedRemovesFromList(t *testing.T) {
	s := Initial(ThemeDark).OpenAdmin()
	assert.True(t, s.Admin.Loading)

	s = s.AdminLoaded([]users.User{{ID: "a", IsAdmin: true}, {ID: "b"}})
	assert.False(t, s.Admin.Loading)

	s = s.AdminUserDeleted("b")
	require.Len(t, s.Admin.Users, 1)
	assert.Equal(t, "a", s.Admin.Users[0].ID)
}

func TestViewProjection(t *testing.T) {
	user := users.User{ID: "u1"}
	s := Initial(ThemeDark).
		WithResumeFile(analysis.UploadedFile{Name: "cv.pdf", MimeType: "application/pdf", Data: "JVBERi0="}).
		SessionChanged(&user).
		AnalysisSucceeded(sampleResult())

	v := s.View()
	assert.Equal(t, "cv.pdf", v.ResumeFileName)
	assert.Equal(t, analysis.BandMedium, v.Analysis.ScoreBand)
	assert.True(t, v.CanSave)
	assert.True(t, v.CanSubmit)
	assert.Nil(t, v.Admin)

	saved := s.MarkReportSaved().View()
	assert.False(t, saved.CanSave)

	inFlight, err := s.WithJobDescription("jd").BeginAnalysis()
	require.NoError(t, err)
	assert.False(t, inFlight.View().CanSubmit)
	assert.NotNil(t, s.OpenAdmin().View().Admin)
}

func TestResumeSourcesAreMutuallyExclusive(t *testing.T) {
	file := analysis.UploadedFile{Name: "cv.pdf", MimeType: "application/pdf", Data: "JVBERi0xLjQ="}

	tests := []struct {
		name     string
		apply    func(State) State
		wantText string
		wantFile bool
	}{
		{
			name:     "text then file",
			apply:    func(s State) State { return s.WithResumeText("Go developer").WithResumeFile(file) },
			wantFile: true,
		},
		{
			name:     "file then text",
			apply:    func(s State) State { return s.WithResumeFile(file).WithResumeText("Go developer") },
			wantText: "Go developer",
		},
		{
			name:     "file then empty text",
			apply:    func(s State) State { return s.WithResumeFile(file).WithResumeText("") },
			wantText: "",
		},
		{
			name:     "text then file then text",
			apply:    func(s State) State { return s.WithResumeText("old").WithResumeFile(file).WithResumeText("new") },
			wantText: "new",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := tc.apply(Initial(ThemeDark))
			src := st.Source()

			assert.Equal(t, tc.wantText, st.ResumeText)
			assert.Equal(t, tc.wantText, src.Text)
			if tc.wantFile {
				require.NotNil(t, st.ResumeFile)
				require.NotNil(t, src.File)
				assert.Equal(t, file, *src.File)
				assert.Empty(t, st.ResumeText)
				return
			}
			assert.Nil(t, st.ResumeFile)
			assert.Nil(t, src.File)
		})
	}
}
