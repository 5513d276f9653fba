package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"resume-match/internal/credentials"
	"resume-match/internal/shared/server/respond"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/shared/util"
)

// Sessions completes a sign-in for a browser client.
type Sessions interface {
	SignInExternal(ctx context.Context, clientID, provider, email string) (token string, err error)
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	stateTTL    time.Duration
	stateStore  *stateStore
	sessions    Sessions
	setSession  func(c *gin.Context, token string)
	now         func() time.Time
}

// NewGoogleService builds a GoogleService. setSession stores the issued
// session token on the response.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, sessions Sessions, setSession func(*gin.Context, string)) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		stateTTL:    5 * time.Minute,
		stateStore:  newStateStore(),
		sessions:    sessions,
		setSession:  setSession,
		now:         time.Now,
	}
}

// Configured reports whether Google credentials are present.
func (s *GoogleService) Configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

// start redirects to Google. The browser passes its client id as a query
// parameter since a redirect cannot carry headers.
func (s *GoogleService) start(c *gin.Context) {
	if !s.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}
	clientID, err := uuid.Parse(strings.TrimSpace(c.Query("client_id")))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "client_id must be a UUID", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, pendingLogin{clientID: clientID.String(), exp: s.now().Add(s.stateTTL)})

	url := s.oauthConfig.AuthCodeURL(state)
	c.Redirect(http.StatusFound, url)
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	pending, ok := s.stateStore.consume(state, s.now())
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"client_hash": util.HashKey(pending.clientID), "error": err})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		telemetry.Warn("auth.google.userinfo_failed", map[string]any{"client_hash": util.HashKey(pending.clientID), "error": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}
	if userInfo.Email == "" || !userInfo.VerifiedEmail {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "Google account has no verified email", nil)
		return
	}

	session, err := s.sessions.SignInExternal(ctx, pending.clientID, credentials.ProviderGoogle, userInfo.Email)
	if err != nil {
		respond.Error(c, http.StatusUnauthorized, "auth_failed", "Failed to authenticate. Please try again.", nil)
		return
	}
	s.setSession(c, session)

	if s.uiRedirect == "" {
		respond.OK(c, gin.H{"ok": true})
		return
	}
	c.Redirect(http.StatusFound, s.uiRedirect)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	if info.ID == "" {
		return googleUserInfo{}, errors.New("userinfo missing id")
	}
	return info, nil
}

type pendingLogin struct {
	clientID string
	exp      time.Time
}

type stateStore struct {
	items map[string]pendingLogin
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]pendingLogin)}
}

// put also drops expired entries so abandoned logins do not accumulate.
func (s *stateStore) put(state string, p pendingLogin) {
	s.mu.Lock()
	for k, v := range s.items {
		if v.exp.Before(p.exp.Add(-time.Hour)) {
			delete(s.items, k)
		}
	}
	s.items[state] = p
	s.mu.Unlock()
}

func (s *stateStore) consume(state string, now time.Time) (pendingLogin, bool) {
	s.mu.Lock()
	p, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	if !ok || now.After(p.exp) {
		return pendingLogin{}, false
	}
	return p, true
}
