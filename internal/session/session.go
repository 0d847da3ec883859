// Package session owns the bearer token: it is the only place the token is
// written, and every authorized request reads it from here.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Makepad-fr/workpanel/internal/logging"
)

// ErrNotLoggedIn is returned when an authorized action is attempted without
// a token.
var ErrNotLoggedIn = errors.New("not logged in")

// TokenSource is what request issuers depend on.
type TokenSource interface {
	Token() (string, bool)
}

// Session holds at most one token. Construct it once at startup with New and
// pass it to whatever issues authorized requests.
type Session struct {
	mu       sync.RWMutex
	storage  Storage
	token    string
	source   string
	onLogout []func()
	l        logging.Logger
}

var _ TokenSource = (*Session)(nil)

type Option func(*Session)

// WithLogger sets the logger; the default discards.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.l = l }
}

// OnLogout registers fn to run after every Logout, e.g. to send the user back
// to the login screen.
func OnLogout(fn func()) Option {
	return func(s *Session) { s.onLogout = append(s.onLogout, fn) }
}

// New reads durable storage once and returns the session it describes.
func New(storage Storage, opts ...Option) (*Session, error) {
	s := &Session{
		storage: storage,
		l:       logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}

	c, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if c != nil {
		s.token = c.Token
		s.source = c.Source
	}
	s.l.Debug("session initialized", "logged_in", s.token != "", "source", s.source)
	return s, nil
}

// Login replaces any previous token with token and persists it.
// The token's format is not checked.
func (s *Session) Login(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.token = token
	s.source = SourceFile
	s.l.Info("logged in")
	return nil
}

// Logout forgets the token, removes it from storage and fires the OnLogout
// hooks. The in-memory token is cleared even if storage fails.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.source = ""
	err := s.storage.Delete()
	hooks := s.onLogout
	s.mu.Unlock()

	s.l.Info("logged out")
	for _, fn := range hooks {
		fn()
	}
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Token returns the current token and whether there is one.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Session) IsLoggedIn() bool {
	_, ok := s.Token()
	return ok
}

// Source reports where the token came from: SourceFile, SourceEnv, or ""
// when logged out.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Require returns the token or ErrNotLoggedIn.
func Require(ts TokenSource) (string, error) {
	if ts == nil {
		return "", ErrNotLoggedIn
	}
	tok, ok := ts.Token()
	if !ok {
		return "", ErrNotLoggedIn
	}
	return tok, nil
}
