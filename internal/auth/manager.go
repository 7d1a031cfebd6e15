// Package auth owns the session lifecycle: login, logout, identity lookup,
// token refresh and the retry policy for authenticated requests.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"taskctl/internal/apiclient"
	"taskctl/internal/apperr"
	"taskctl/internal/logging"
	"taskctl/internal/service"
	"taskctl/internal/validation"
	"taskctl/internal/wire"
)

// API endpoints.
const (
	LoginPath    = "/auth/login-json"
	LogoutPath   = "/auth/logout"
	MePath       = "/auth/me"
	RefreshPath  = "/auth/refresh"
	RegisterPath = "/auth/register"
)

// State is the manager's position in the session lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	RefreshPending
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case RefreshPending:
		return "refresh pending"
	default:
		return "anonymous"
	}
}

// Sender sends one API request.
type Sender interface {
	Send(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Store persists the session.
type Store interface {
	SetToken(token string) error
	Token() (string, bool)
	SetUser(u service.UserProfile) error
	User() (service.UserProfile, bool)
	Clear() error
}

// Manager drives the session lifecycle. Safe for concurrent use.
type Manager struct {
	api   Sender
	store Store
	log   *slog.Logger

	mu      sync.Mutex
	pending State
	refresh singleflight.Group
}

// NewManager returns a manager over api and store.
func NewManager(api Sender, store Store, log *slog.Logger) *Manager {
	return &Manager{api: api, store: store, log: logging.OrDiscard(log)}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	pending := m.pending
	m.mu.Unlock()
	if pending != Anonymous {
		return pending
	}
	if _, ok := m.store.Token(); ok {
		return Authenticated
	}
	return Anonymous
}

func (m *Manager) enter(s State) func() {
	m.mu.Lock()
	m.pending = s
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.pending = Anonymous
		m.mu.Unlock()
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	User        json.RawMessage `json:"user"`
}

// Login exchanges credentials for a session. Any previous session is
// replaced only when the exchange succeeds.
func (m *Manager) Login(ctx context.Context, username, password string) (service.UserProfile, error) {
	if err := validation.Credentials(username, password); err != nil {
		return service.UserProfile{}, err
	}
	defer m.enter(Authenticating)()

	resp, err := m.api.Send(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   LoginPath,
		Body:   loginRequest{Username: strings.TrimSpace(username), Password: password},
	})
	if err != nil {
		return service.UserProfile{}, err
	}
	if !resp.OK() {
		if resp.Status >= 500 {
			return service.UserProfile{}, apperr.NewAuthError(apperr.AuthServerError, resp.Detail())
		}
		return service.UserProfile{}, apperr.NewAuthError(apperr.InvalidCredentials, resp.Detail())
	}

	var body tokenResponse
	if err := resp.Decode(&body); err != nil {
		return service.UserProfile{}, &apperr.AuthError{Kind: apperr.MalformedResponse, Message: "login response unreadable", Cause: err}
	}
	if body.AccessToken == "" {
		return service.UserProfile{}, apperr.NewAuthError(apperr.MalformedResponse, "login response has no access token")
	}

	if err := m.store.Clear(); err != nil {
		m.log.Warn("failed to clear previous session", "error", err)
	}
	if err := m.store.SetToken(body.AccessToken); err != nil {
		return service.UserProfile{}, err
	}

	var profile service.UserProfile
	if len(body.User) > 0 && string(body.User) != "null" {
		p, err := wire.DecodeUser(body.User)
		if err != nil {
			m.log.Warn("login response profile ignored", "error", err)
		} else {
			profile = p
			if err := m.store.SetUser(p); err != nil {
				m.log.Warn("failed to cache profile", "error", err)
			}
		}
	}
	m.log.Debug("logged in", "username", username, "expires_in", body.ExpiresIn)
	return profile, nil
}

// Logout ends the session. The server call is best effort; the local
// session is cleared regardless of its outcome.
func (m *Manager) Logout(ctx context.Context) (err error) {
	defer func() {
		if cerr := m.store.Clear(); cerr != nil {
			err = cerr
		}
	}()

	token, ok := m.store.Token()
	if !ok {
		return nil
	}
	resp, err := m.api.Send(ctx, apiclient.Request{Method: http.MethodPost, Path: LogoutPath, Token: token})
	switch {
	case err != nil:
		m.log.Warn("logout request failed", "error", err)
	case !resp.OK():
		m.log.Warn("logout request rejected", "status", resp.Status, "detail", resp.Detail())
	}
	return nil
}

// CurrentUser asks the server who owns the session and caches the answer.
func (m *Manager) CurrentUser(ctx context.Context) (service.UserProfile, error) {
	token, ok := m.store.Token()
	if !ok {
		return service.UserProfile{}, apperr.NewAuthError(apperr.NotAuthenticated, "")
	}

	resp, err := m.api.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: MePath, Token: token})
	if err != nil {
		return service.UserProfile{}, err
	}
	if resp.Status == http.StatusUnauthorized {
		return service.UserProfile{}, m.expire("identity lookup rejected")
	}
	if !resp.OK() {
		return service.UserProfile{}, apperr.NewAuthError(apperr.AuthServerError, resp.Detail())
	}

	profile, err := wire.DecodeUser(resp.Body)
	if err != nil {
		return service.UserProfile{}, &apperr.AuthError{Kind: apperr.MalformedResponse, Message: "profile unreadable", Cause: err}
	}
	if err := m.store.SetUser(profile); err != nil {
		m.log.Warn("failed to cache profile", "error", err)
	}
	return profile, nil
}

// Refresh replaces the stored token with a fresh one. On any failure the
// session is cleared and SessionExpired is returned.
func (m *Manager) Refresh(ctx context.Context) error {
	token, ok := m.store.Token()
	if !ok {
		return apperr.NewAuthError(apperr.NotAuthenticated, "")
	}
	return m.refreshFrom(ctx, token)
}

// refreshFrom refreshes a session that was using stale. Concurrent callers
// share one request; a caller whose stale token was already replaced reuses
// the replacement. The shared request ignores the first caller's
// cancellation and is bounded by the adapter timeout instead.
func (m *Manager) refreshFrom(ctx context.Context, stale string) error {
	ctx = context.WithoutCancel(ctx)
	_, err, shared := m.refresh.Do("refresh", func() (any, error) {
		current, ok := m.store.Token()
		if !ok {
			return nil, apperr.NewAuthError(apperr.SessionExpired, "")
		}
		if current != stale {
			return nil, nil
		}
		return nil, m.doRefresh(ctx, current)
	})
	if shared {
		m.log.Debug("refresh coalesced")
	}
	return err
}

func (m *Manager) doRefresh(ctx context.Context, token string) error {
	defer m.enter(RefreshPending)()

	resp, err := m.api.Send(ctx, apiclient.Request{Method: http.MethodPost, Path: RefreshPath, Token: token})
	if err != nil {
		m.log.Warn("refresh failed", "error", err)
		return m.expire("refresh failed")
	}
	if !resp.OK() {
		m.log.Warn("refresh rejected", "status", resp.Status, "detail", resp.Detail())
		return m.expire("refresh rejected")
	}
	var body tokenResponse
	if err := resp.Decode(&body); err != nil || body.AccessToken == "" {
		return m.expire("refresh response has no access token")
	}
	if err := m.store.SetToken(body.AccessToken); err != nil {
		return fmt.Errorf("save refreshed token: %w", err)
	}
	m.log.Debug("token refreshed", "expires_in", body.ExpiresIn)
	return nil
}

// expire clears the session and returns SessionExpired.
func (m *Manager) expire(reason string) error {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("failed to clear session", "error", err)
	}
	m.log.Debug("session expired", "reason", reason)
	return apperr.NewAuthError(apperr.SessionExpired, "")
}

// Do sends an authenticated request. A 401 triggers exactly one refresh and
// one retry; a second 401 ends the session. Other statuses are returned as-is.
func (m *Manager) Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error) {
	token, ok := m.store.Token()
	if !ok {
		return nil, apperr.NewAuthError(apperr.NotAuthenticated, "")
	}

	refreshed := false
	if tokenExpired(token) {
		if err := m.refreshFrom(ctx, token); err != nil {
			return nil, err
		}
		if token, ok = m.store.Token(); !ok {
			return nil, apperr.NewAuthError(apperr.SessionExpired, "")
		}
		refreshed = true
	}

	req.Token = token
	resp, err := m.api.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		return resp, nil
	}
	if refreshed {
		return nil, m.expire("refreshed token rejected")
	}

	if err := m.refreshFrom(ctx, token); err != nil {
		return nil, err
	}
	if req.Token, ok = m.store.Token(); !ok {
		return nil, apperr.NewAuthError(apperr.SessionExpired, "")
	}
	resp, err = m.api.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized {
		return nil, m.expire("retried request rejected")
	}
	return resp, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates an account. It does not touch the session.
func (m *Manager) Register(ctx context.Context, r service.Registration) (service.UserProfile, error) {
	if err := validation.Registration(r); err != nil {
		return service.UserProfile{}, err
	}

	resp, err := m.api.Send(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   RegisterPath,
		Body: registerRequest{
			Username: strings.TrimSpace(r.Username),
			Email:    strings.TrimSpace(r.Email),
			Name:     strings.TrimSpace(r.Name),
			Password: r.Password,
		},
	})
	if err != nil {
		return service.UserProfile{}, err
	}
	if !resp.OK() {
		return service.UserProfile{}, apperr.NewRequestError(resp.Status, resp.Detail())
	}

	var u wire.User
	if err := resp.Decode(&u); err != nil {
		m.log.Warn("registration response unreadable", "error", err)
	}
	profile := u.Profile()
	if profile.Username == "" {
		profile.Username = strings.TrimSpace(r.Username)
	}
	return profile, nil
}

// Session reports the stored session without contacting the server.
func (m *Manager) Session() (service.Session, bool) {
	token, ok := m.store.Token()
	if !ok {
		return service.Session{}, false
	}
	var s service.Session
	if u, ok := m.store.User(); ok {
		s.User = &u
	}
	if c, ok := ParseClaims(token); ok {
		s.Subject = c.Subject
		s.ExpiresAt = c.ExpiresAt
	}
	s.Expired = tokenExpired(token)
	return s, true
}

// Expired reports whether the stored token is past its expiry.
func (m *Manager) Expired() bool {
	token, ok := m.store.Token()
	return ok && tokenExpired(token)
}

// IsSessionEnded reports whether err means the user must sign in again.
func IsSessionEnded(err error) bool {
	var ae *apperr.AuthError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == apperr.SessionExpired || ae.Kind == apperr.NotAuthenticated
}
