package orchestrator

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"resume-match/internal/prefs"
	"resume-match/internal/shared/metrics"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/shared/util"
)

const (
	// DefaultIdleTimeout is how long an unused controller is kept.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxControllers caps live controllers; the least recently used
	// one is evicted to make room.
	DefaultMaxControllers = 10000
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// NewStore returns a fresh store client for one browser client.
	NewStore     func() Store
	Analyzer     Analyzer
	Prefs        prefs.Store
	ShareBaseURL string
	Metrics      metrics.Recorder
	IdleTimeout  time.Duration
	// MaxControllers bounds the registry size. Zero means
	// DefaultMaxControllers.
	MaxControllers int
	Now            func() time.Time
}

type registryEntry struct {
	controller *Controller
	lastUsed   time.Time
	// token is the session token the controller was created with.
	token string
}

// accepts reports whether a request carrying token may use the entry's
// controller. A signed-in controller requires the exact token it holds; an
// anonymous one accepts no token or the token it was already tried with.
func (e *registryEntry) accepts(token string) bool {
	held := e.controller.SessionToken()
	if e.controller.signedIn() {
		return held != "" && subtle.ConstantTimeCompare([]byte(held), []byte(token)) == 1
	}
	return token == "" || token == e.token
}

// Registry keeps one Controller per browser client id.
type Registry struct {
	cfg RegistryConfig

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxControllers <= 0 {
		cfg.MaxControllers = DefaultMaxControllers
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &Registry{cfg: cfg, entries: make(map[string]*registryEntry)}
}

// waiter is implemented by stores whose session restore runs in the
// background.
type waiter interface {
	Wait()
}

// Get returns the controller for clientID, creating it on first use. A new
// controller resumes the session carried by token before it is returned.
// The client id alone never grants a session: when token does not match the
// session of the existing controller, that controller is discarded and a
// new one is built from token.
func (r *Registry) Get(ctx context.Context, clientID, token string) (*Controller, error) {
	e, err := r.lookup(clientID)
	if err != nil {
		return nil, err
	}
	if e != nil {
		if e.accepts(token) {
			return e.controller, nil
		}
		r.discard(clientID, e)
		telemetry.Info("session.replaced", map[string]any{"client_hash": util.HashKey(clientID)})
	}

	store := r.cfg.NewStore()
	if token != "" {
		store.Restore(token)
		if w, ok := store.(waiter); ok {
			w.Wait()
		}
	}
	ctrl := NewController(ctx, Deps{
		Analyzer:     r.cfg.Analyzer,
		Store:        store,
		Prefs:        prefs.Scoped{Store: r.cfg.Prefs, ClientID: clientID},
		ShareBaseURL: r.cfg.ShareBaseURL,
		Metrics:      r.cfg.Metrics,
	})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		ctrl.Teardown()
		return nil, ErrRegistryClosed
	}
	var evicted *Controller
	if e, ok := r.entries[clientID]; ok {
		// Another request created it first.
		if e.accepts(token) {
			e.lastUsed = r.cfg.Now()
			r.mu.Unlock()
			ctrl.Teardown()
			return e.controller, nil
		}
		evicted = e.controller
	} else if len(r.entries) >= r.cfg.MaxControllers {
		evicted = r.evictOldestLocked()
	}
	r.entries[clientID] = &registryEntry{controller: ctrl, lastUsed: r.cfg.Now(), token: token}
	r.mu.Unlock()

	if evicted != nil {
		evicted.Teardown()
	}
	telemetry.Info("session.created", map[string]any{"client_hash": util.HashKey(clientID), "restored": token != ""})
	return ctrl, nil
}

func (r *Registry) lookup(clientID string) (*registryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if e, ok := r.entries[clientID]; ok {
		e.lastUsed = r.cfg.Now()
		return e, nil
	}
	return nil, nil
}

// discard removes e if it is still the entry for clientID.
func (r *Registry) discard(clientID string, e *registryEntry) {
	r.mu.Lock()
	current, ok := r.entries[clientID]
	if ok && current == e {
		delete(r.entries, clientID)
	}
	r.mu.Unlock()
	if ok && current == e {
		e.controller.Teardown()
	}
}

// evictOldestLocked drops the least recently used entry. r.mu must be held.
func (r *Registry) evictOldestLocked() *Controller {
	var (
		oldestID string
		oldest   *registryEntry
	)
	for id, e := range r.entries {
		if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(r.entries, oldestID)
	telemetry.Warn("session.evicted_for_capacity", map[string]any{"max": r.cfg.MaxControllers})
	return oldest.controller
}

// SignInExternal signs clientID in with an identity verified by provider
// and returns the new session token.
func (r *Registry) SignInExternal(ctx context.Context, clientID, provider, email string) (string, error) {
	ctrl, err := r.Get(ctx, clientID, "")
	if err != nil {
		return "", err
	}
	if _, err := ctrl.SignInExternal(ctx, provider, email); err != nil {
		return "", err
	}
	return ctrl.SessionToken(), nil
}

// Remove tears down and forgets the controller for clientID.
func (r *Registry) Remove(clientID string) (State, bool) {
	r.mu.Lock()
	e, ok := r.entries[clientID]
	delete(r.entries, clientID)
	r.mu.Unlock()
	if !ok {
		return State{}, false
	}
	return e.controller.Teardown(), true
}

// Len is the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep tears down controllers idle for longer than the idle timeout and
// returns how many were evicted.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var stale []*Controller
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.controller)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Teardown()
	}
	if len(stale) > 0 {
		telemetry.Info("session.evicted", map[string]any{"count": len(stale)})
	}
	return len(stale)
}

// Start sweeps idle controllers periodically until ctx is done.
func (r *Registry) Start(ctx context.Context) {
	interval := r.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Close tears down every controller. Later Get calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.controller.Teardown()
	}
}
