// Package identity establishes the anonymous principal every other
// component is scoped by.
package identity

import (
	"context"
	"sync"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// State is a point-in-time view of the session.
//
//	Principal == "" && Err == nil  pending
//	Principal != ""                signed in
//	Err != nil                     failed, terminal until restart
type State struct {
	Principal domain.Principal
	Err       error
}

// Pending reports whether the session is still waiting for the provider.
func (s State) Pending() bool { return !s.Principal.Valid() && s.Err == nil }

// Failed reports whether anonymous sign-in was rejected.
func (s State) Failed() bool { return s.Err != nil }

func (s State) same(o State) bool {
	return s.Principal == o.Principal && (s.Err == nil) == (o.Err == nil)
}

// Option configures a Session.
type Option func(*Session)

// WithOnChange registers a callback invoked after every state change. It
// runs on the provider's notification goroutine.
func WithOnChange(fn func(State)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// Session holds the principal for the lifetime of the application.
type Session struct {
	provider domain.IdentityProvider
	log      *logger.Logger
	onChange func(State)

	mu          sync.RWMutex
	state       State
	cancel      context.CancelFunc
	unsubscribe func()
}

// New creates a session. Call Start to begin listening.
func New(provider domain.IdentityProvider, log *logger.Logger, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the auth-state listener. When the provider reports
// nobody signed in, the session requests an anonymous sign-in once; a
// failure is captured in State().Err and never retried.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.log.Warn("identity session already started")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.unsubscribe = s.provider.OnAuthStateChange(func(p domain.Principal) {
		s.handle(ctx, p)
	})
	s.log.Debug("listening for auth state changes")
}

func (s *Session) handle(ctx context.Context, p domain.Principal) {
	if p.Valid() {
		if s.update(State{Principal: p}) {
			s.log.Info("signed in as %s", p)
		}
		return
	}

	s.mu.RLock()
	failed := s.state.Err != nil
	s.mu.RUnlock()
	if failed || ctx.Err() != nil {
		return
	}

	s.update(State{})
	s.log.Debug("no principal, signing in anonymously")
	if _, err := s.provider.SignInAnonymously(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("anonymous sign-in failed: %v", err)
		s.update(State{Err: err})
	}
	// On success the provider reports the new principal through the listener.
}

// update stores st and fires the change callback. It reports whether the
// state actually changed.
func (s *Session) update(st State) bool {
	s.mu.Lock()
	if s.state.same(st) {
		s.mu.Unlock()
		return false
	}
	s.state = st
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(st)
	}
	return true
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Principal returns the signed-in principal, or "" while pending or failed.
func (s *Session) Principal() domain.Principal {
	return s.State().Principal
}

// Stop de-registers the listener. No callbacks fire after Stop returns.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, unsubscribe := s.cancel, s.unsubscribe
	s.cancel, s.unsubscribe = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
		s.log.Debug("stopped listening for auth state changes")
	}
}
