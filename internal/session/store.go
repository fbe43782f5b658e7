// Package session owns the authentication token and its state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/backend"
	"github.com/tagging-ai/tagboard/pkg/models"
)

// ErrAlreadyAuthenticated is returned by Login while a session is active.
var ErrAlreadyAuthenticated = errors.New("already logged in")

// Authenticator performs the public auth calls.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (backend.LoginResult, error)
	Register(ctx context.Context, reg backend.Registration) error
}

// Listener is notified after every state change.
type Listener func(from, to State)

// Store is the single owner of the session token. It is safe for
// concurrent use and implements backend.TokenSource.
type Store struct {
	auth     Authenticator
	storages []Storage
	verifier Verifier
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	state     State
	current   Stored
	listeners map[int]Listener
	nextID    int
}

// Option configures a Store.
type Option func(*Store)

// WithStorage adds places to persist the token. Order matters for Probe:
// the first storage holding a token wins.
func WithStorage(s ...Storage) Option {
	return func(st *Store) { st.storages = append(st.storages, s...) }
}

// WithVerifier rejects stored tokens that fail verification on probe.
func WithVerifier(v Verifier) Option {
	return func(st *Store) { st.verifier = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// New creates a store in StateUnknown.
func New(auth Authenticator, opts ...Option) *Store {
	s := &Store{
		auth:      auth,
		logger:    zap.NewNop(),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentToken returns the token, or "" when not authenticated.
func (s *Store) CurrentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return ""
	}
	return s.current.Token
}

// User returns the logged-in user, if known.
func (s *Store) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.User
}

// ExpiresAt returns the token expiry, zero when unknown.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ExpiresAt
}

// OnChange registers l and returns a function that unregisters it.
func (s *Store) OnChange(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Probe resolves StateUnknown from persisted storage. Expired or
// unverifiable tokens are cleared. Calling Probe in any other state
// returns that state unchanged.
func (s *Store) Probe() State {
	if st := s.State(); st != StateUnknown {
		return st
	}

	stored, source := s.loadFirst()
	if stored.Token == "" {
		_ = s.setState(StateUnauthenticated, Stored{})
		return StateUnauthenticated
	}

	if exp, ok := tokenExpiry(stored.Token); ok {
		stored.ExpiresAt = exp
		if !exp.After(s.now()) {
			s.logger.Info("stored token expired", zap.Time("expires_at", exp))
			_ = s.clearAll()
			_ = s.setState(StateUnauthenticated, Stored{})
			return StateUnauthenticated
		}
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(stored.Token); err != nil {
			s.logger.Warn("stored token rejected", zap.Error(err))
			_ = s.clearAll()
			_ = s.setState(StateUnauthenticated, Stored{})
			return StateUnauthenticated
		}
	}

	// A token found in one storage is written back to the others.
	if _, ok := s.storages[source].(Source); !ok {
		for i, st := range s.storages {
			if i == source {
				continue
			}
			if err := st.Save(stored); err != nil {
				s.logger.Warn("failed to sync session storage", zap.Error(err))
			}
		}
	}
	_ = s.setState(StateAuthenticated, stored)
	return StateAuthenticated
}

// Login authenticates against the backend and persists the token in every
// storage. On failure the session stays unauthenticated and nothing is stored.
func (s *Store) Login(ctx context.Context, creds backend.Credentials) error {
	if s.Probe() == StateAuthenticated {
		return ErrAlreadyAuthenticated
	}

	res, err := s.auth.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	stored := Stored{Token: res.Token, User: res.User}
	if exp, ok := tokenExpiry(res.Token); ok {
		stored.ExpiresAt = exp
	}

	if err := s.saveAll(stored); err != nil {
		_ = s.clearAll()
		return fmt.Errorf("failed to persist session: %w", err)
	}

	if err := s.setState(StateAuthenticated, stored); err != nil {
		_ = s.clearAll()
		return err
	}
	s.logger.Info("logged in", zap.String("user", res.User.DisplayName()))
	return nil
}

// Register creates an account without logging in.
func (s *Store) Register(ctx context.Context, reg backend.Registration) error {
	if err := s.auth.Register(ctx, reg); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// Logout clears the token from every storage and moves to
// StateUnauthenticated.
func (s *Store) Logout() error {
	err := s.clearAll()
	if s.State() != StateUnauthenticated {
		_ = s.setState(StateUnauthenticated, Stored{})
	}
	return err
}

// Expire is called when the backend rejects token. A rejection of a token
// other than the current one is ignored.
func (s *Store) Expire(token string) {
	if token == "" || token != s.CurrentToken() {
		s.logger.Debug("ignoring rejection of a stale token")
		return
	}
	s.logger.Warn("session rejected by backend, logging out")
	if err := s.Logout(); err != nil {
		s.logger.Warn("failed to clear session", zap.Error(err))
	}
}

func (s *Store) setState(to State, stored Stored) error {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.current = stored
		s.mu.Unlock()
		return nil
	}
	if !canTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.state = to
	s.current = stored
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(from, to)
	}
	return nil
}

func (s *Store) loadFirst() (Stored, int) {
	for i, st := range s.storages {
		stored, err := st.Load()
		if err != nil {
			s.logger.Warn("failed to load session", zap.Error(err))
			continue
		}
		if stored.Token != "" {
			return stored, i
		}
	}
	return Stored{}, -1
}

func (s *Store) saveAll(stored Stored) error {
	var errs []error
	for _, st := range s.storages {
		if err := st.Save(stored); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) clearAll() error {
	var errs []error
	for _, st := range s.storages {
		if err := st.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
