package session

import (
	"errors"
	"strings"
	"sync"
)

// ErrNotLoggedIn is returned by Require when no token is held.
var ErrNotLoggedIn = errors.New("not logged in; run `schedule login`")

// Session is the explicit auth context handed to the API client, the calendar
// page and the UI. It is safe for concurrent use.
type Session struct {
	store TokenStore

	mu       sync.Mutex
	token    string
	onLogout []func()
}

// New loads any persisted token from store. A nil store keeps the session in memory.
func New(store TokenStore) (*Session, error) {
	if store == nil {
		store = &MemoryStore{}
	}
	tok, err := store.Load()
	if err != nil {
		return &Session{store: store}, err
	}
	return &Session{store: store, token: strings.TrimSpace(tok)}, nil
}

// Token returns the current bearer token ("" when logged out).
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Require returns ErrNotLoggedIn when no token is held.
func (s *Session) Require() error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

// BearerHeader renders the Authorization header value, or "" when logged out.
func (s *Session) BearerHeader() string {
	tok := s.Token()
	if tok == "" {
		return ""
	}
	return "Bearer " + tok
}

// Login stores token in memory and in the persistent store.
func (s *Session) Login(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return s.store.Save(token)
}

// Logout clears the token everywhere and runs the logout hooks. Hooks run
// only when a token was actually held, so repeated 401s fire them once.
func (s *Session) Logout() error {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	err := s.store.Delete()
	if had {
		for _, fn := range hooks {
			fn()
		}
	}
	return err
}

// OnLogout registers fn to run after the session is cleared.
func (s *Session) OnLogout(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}
