// Package session is the single source of truth for the authenticated
// operator and the bearer token used by every other layer. At most one
// session is active per process; the token held here is the one the request
// wrapper and the realtime channel read at call time.
package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/models"
)

// DefaultLoginPath is the post-logout destination when no alternate login
// path was supplied by the login policy.
const DefaultLoginPath = "login"

// Store holds the session and the persisted operator preferences.
type Store struct {
	baseURL string
	client  *http.Client
	ls      *localStore
	log     *zap.Logger

	mu       sync.Mutex
	user     *models.User
	token    string
	altLogin string
}

// NewStore builds a Store persisting to statePath and logging with log. The
// http client is used for the public login endpoint only; authenticated
// traffic goes through the request wrapper, not the Store.
func NewStore(baseURL string, client *http.Client, statePath string, log *zap.Logger) *Store {
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		ls:      newLocalStore(statePath),
		log:     log,
	}
}

// Restore loads the persisted state and rebuilds the in-memory session from
// it. Any parse failure is treated as "no session": the store comes up
// logged out and never returns an error to the caller.
func (s *Store) Restore() {
	if err := s.ls.load(); err != nil {
		s.log.Warn("state file unreadable, starting logged out", zap.Error(err))
		return
	}

	token := s.ls.Get(KeyToken)
	rawUser := s.ls.Get(KeyUser)
	if token == "" || rawUser == "" {
		return
	}

	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.log.Warn("persisted user record malformed, starting logged out", zap.Error(err))
		return
	}
	user.IsAuthenticated = true

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()
}

// Login submits the credentials to the login endpoint. The secret is
// base64-obfuscated in transit; that is a reversible encoding expected by
// the server, not a cryptographic protection. On failure the server's error
// string is returned verbatim.
func (s *Store) Login(ctx context.Context, username, secret string) error {
	payload := models.LoginRequest{
		Username: username,
		Password: base64.StdEncoding.EncodeToString([]byte(secret)),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return fmt.Errorf("login failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("%s", e.Error)
	}

	var lr models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("malformed login response: %w", err)
	}
	lr.User.IsAuthenticated = true

	s.mu.Lock()
	s.user = &lr.User
	s.token = lr.Token
	s.mu.Unlock()

	userJSON, _ := json.Marshal(lr.User)
	if err := s.ls.Set(KeyToken, lr.Token); err != nil {
		s.log.Warn("failed to persist token", zap.Error(err))
	}
	if err := s.ls.Set(KeyUser, string(userJSON)); err != nil {
		s.log.Warn("failed to persist user", zap.Error(err))
	}
	return nil
}

// Logout clears the persisted and in-memory session. It returns the login
// destination: the alternate path from a previously fetched login policy
// when one was supplied, the default path otherwise. Logging out while
// already logged out is a no-op; the second return reports whether this
// call actually cleared a session.
func (s *Store) Logout() (string, bool) {
	s.mu.Lock()
	acted := s.user != nil || s.token != ""
	s.user = nil
	s.token = ""
	dest := s.altLogin
	s.mu.Unlock()

	if acted {
		_ = s.ls.Delete(KeyToken)
		_ = s.ls.Delete(KeyUser)
	}
	if dest == "" {
		dest = DefaultLoginPath
	}
	return dest, acted
}

// SetLoginPolicy records the alternate login path from a fetched policy.
func (s *Store) SetLoginPolicy(p models.LoginPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.altLogin = p.URL
}

// Token returns the current bearer token, empty when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken replaces the token after a sliding-session refresh. The new
// value is persisted before the method returns. Last write wins; there is
// no versioning between concurrent refreshes.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	if s.user == nil {
		// A refresh racing a forced logout must not resurrect the session.
		s.mu.Unlock()
		return
	}
	s.token = token
	s.mu.Unlock()

	if err := s.ls.Set(KeyToken, token); err != nil {
		s.log.Warn("failed to persist refreshed token", zap.Error(err))
	}
}

// User returns a copy of the authenticated operator, or nil when logged out.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a session is active.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// MarkExpired flags the session as expired for the next login prompt.
func (s *Store) MarkExpired() {
	if err := s.ls.Set(KeySessionExpired, "1"); err != nil {
		s.log.Warn("failed to persist session-expired flag", zap.Error(err))
	}
}

// ConsumeExpired reads and clears the transient session-expired flag.
func (s *Store) ConsumeExpired() bool {
	if s.ls.Get(KeySessionExpired) == "" {
		return false
	}
	_ = s.ls.Delete(KeySessionExpired)
	return true
}

// Lang returns the persisted language preference, empty when unset.
func (s *Store) Lang() string {
	return s.ls.Get(KeyLang)
}

// SetLang persists the language preference.
func (s *Store) SetLang(lang string) {
	if err := s.ls.Set(KeyLang, lang); err != nil {
		s.log.Warn("failed to persist language", zap.Error(err))
	}
}

// DarkMode returns the persisted theme preference. Dark is the default.
func (s *Store) DarkMode() bool {
	return s.ls.Get(KeyDarkMode) != "off"
}

// ToggleDarkMode flips and persists the theme preference, returning the new
// state.
func (s *Store) ToggleDarkMode() bool {
	next := "off"
	if !s.DarkMode() {
		next = "on"
	}
	if err := s.ls.Set(KeyDarkMode, next); err != nil {
		s.log.Warn("failed to persist theme", zap.Error(err))
	}
	return next == "on"
}
