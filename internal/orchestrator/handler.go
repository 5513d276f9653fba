package orchestrator

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-match/internal/extract"
	"resume-match/internal/shared/server/middleware"
	"resume-match/internal/shared/server/respond"
	"resume-match/internal/shared/util"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "rm_session"

	maxUploadSize = 10 << 20 // 10MB
)

// Handler exposes a client's controller as HTTP intents. Every intent
// responds with the full view.
type Handler struct {
	Registry     *Registry
	SessionTTL   time.Duration
	SecureCookie bool
}

// NewHandler constructs a Handler.
func NewHandler(registry *Registry, sessionTTL time.Duration, secureCookie bool) *Handler {
	return &Handler{Registry: registry, SessionTTL: sessionTTL, SecureCookie: secureCookie}
}

// RegisterRoutes attaches the intent routes. analyzeLimit runs before the
// analyze intent only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, analyzeLimit ...gin.HandlerFunc) {
	app := rg.Group("/app")
	app.GET("/state", h.state)
	app.DELETE("", h.teardown)

	app.POST("/resume/text", h.resumeText)
	app.POST("/resume/file", h.resumeFile)
	app.POST("/job-description", h.jobDescription)
	app.POST("/analyze", append(analyzeLimit, h.analyze)...)

	app.POST("/auth/open", h.openAuth)
	app.POST("/auth/login", h.logIn)
	app.POST("/auth/signup", h.signUp)
	app.POST("/auth/logout", h.logOut)

	app.POST("/modal/history", h.openHistory)
	app.POST("/modal/admin", h.openAdmin)
	app.DELETE("/modal", h.closeModal)

	app.POST("/reports", h.saveReport)
	app.DELETE("/reports/:id", h.deleteReport)
	app.POST("/reports/:id/load", h.loadReport)

	app.POST("/theme/toggle", h.toggleTheme)
	app.POST("/share", h.share)
	app.POST("/shared", h.openShared)

	app.DELETE("/admin/users/:id", h.deleteUser)
}

// ShareResponse carries a share link with the view.
type ShareResponse struct {
	Link  string `json:"link"`
	State View   `json:"state"`
}

// SharedResponse carries the address to show after a share link is opened.
type SharedResponse struct {
	URL   string `json:"url"`
	State View   `json:"state"`
}

type textRequest struct {
	Text string `json:"text"`
}

type authOpenRequest struct {
	Mode AuthMode `json:"mode"`
}

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type sharedRequest struct {
	URL string `json:"url"`
}

func (h *Handler) controller(c *gin.Context) (*Controller, bool) {
	clientID := middleware.ClientIDFromContext(c)
	ctrl, err := h.Registry.Get(c.Request.Context(), clientID, sessionToken(c))
	if err != nil {
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "service is shutting down", nil)
		return nil, false
	}
	if u := ctrl.State().User; u != nil {
		middleware.SetUserID(c, u.ID)
	}
	return ctrl, true
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func (h *Handler) render(c *gin.Context, st State) {
	if st.User != nil {
		middleware.SetUserID(c, st.User.ID)
	}
	c.Set("analysisPhase", string(st.Phase))
	respond.OK(c, st.View())
}

// fail maps controller errors to HTTP errors. Validation failures are part
// of the view and render normally.
func (h *Handler) fail(c *gin.Context, st State, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		h.render(c, st)
	case errors.Is(err, ErrAnalysisInFlight):
		respond.Error(c, http.StatusConflict, "analysis_in_flight", "an analysis is already running", st.View())
	case errors.Is(err, ErrNotReady):
		respond.Error(c, http.StatusConflict, "not_ready", "no analysis result to use", st.View())
	case errors.Is(err, ErrNotAuthenticated):
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required", st.View())
	case errors.Is(err, ErrNotAdmin), errors.Is(err, ErrCannotDeleteAdmin):
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), st.View())
	case errors.Is(err, ErrReportNotFound), errors.Is(err, ErrUserNotListed):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), st.View())
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}

// SetSessionCookie stores token in the HttpOnly session cookie; an empty
// token clears it.
func (h *Handler) SetSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	if token == "" {
		c.SetCookie(SessionCookie, "", -1, "/", "", h.SecureCookie, true)
		return
	}
	c.SetCookie(SessionCookie, token, int(h.SessionTTL/time.Second), "/", "", h.SecureCookie, true)
}

func (h *Handler) state(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.render(c, ctrl.State())
}

func (h *Handler) teardown(c *gin.Context) {
	// Resolve first so a request without the session only ever tears down
	// an anonymous controller.
	if _, ok := h.controller(c); !ok {
		return
	}
	st, ok := h.Registry.Remove(middleware.ClientIDFromContext(c))
	if !ok {
		st = Initial(ThemeDark).Teardown()
	}
	h.render(c, st)
}

func (h *Handler) resumeText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.render(c, ctrl.SetResumeText(req.Text))
}

func (h *Handler) resumeFile(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			st := ctrl.FileReadFailed(err)
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB", st.View())
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.render(c, ctrl.FileReadFailed(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.render(c, ctrl.FileReadFailed(err))
		return
	}
	name := util.DisplayFileName(fileHeader.Filename)
	mimeType := extract.NormalizeMimeType(fileHeader.Header.Get("Content-Type"), name, data)
	h.render(c, ctrl.SetResumeFile(name, mimeType, data))
}

func (h *Handler) jobDescription(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.render(c, ctrl.SetJobDescription(req.Text))
}

func (h *Handler) analyze(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}

func (h *Handler) openAuth(c *gin.Context) {
	var req authOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.render(c, ctrl.OpenAuth(req.Mode))
}

func (h *Handler) logIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st := ctrl.LogIn(c.Request.Context(), req.Email, req.Password)
	if st.User != nil {
		h.SetSessionCookie(c, ctrl.SessionToken())
	}
	h.render(c, st)
}

func (h *Handler) signUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st := ctrl.SignUp(c.Request.Context(), req.Email, req.Password, req.ConfirmPassword)
	if st.User != nil {
		h.SetSessionCookie(c, ctrl.SessionToken())
	}
	h.render(c, st)
}

func (h *Handler) logOut(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st := ctrl.LogOut(c.Request.Context())
	h.SetSessionCookie(c, "")
	h.render(c, st)
}

func (h *Handler) openHistory(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.OpenHistory()
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}

func (h *Handler) openAdmin(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.OpenAdmin(c.Request.Context())
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}

func (h *Handler) closeModal(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.render(c, ctrl.CloseModal())
}

func (h *Handler) saveReport(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.SaveReport(c.Request.Context())
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}

func (h *Handler) deleteReport(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.DeleteReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}

func (h *Handler) loadReport(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.LoadReport(c.Param("id"))
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}

func (h *Handler) toggleTheme(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.render(c, ctrl.ToggleTheme(c.Request.Context()))
}

func (h *Handler) share(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	link, err := ctrl.ShareLink()
	st := ctrl.State()
	if err != nil {
		h.fail(c, st, err)
		return
	}
	respond.OK(c, ShareResponse{Link: link, State: st.View()})
}

func (h *Handler) openShared(c *gin.Context) {
	var req sharedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, stripped := ctrl.OpenSharedLink(req.URL)
	respond.OK(c, SharedResponse{URL: stripped, State: st.View()})
}

func (h *Handler) deleteUser(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, st, err)
		return
	}
	h.render(c, st)
}
