package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface check.
var _ domain.IdentityProvider = (*Auth)(nil)

// Auth is an identity provider that signs in against a PrincipalRegistry
// and remembers the current principal for the life of the process.
type Auth struct {
	registry domain.PrincipalRegistry
	log      *logger.Logger

	mu        sync.Mutex
	current   domain.Principal
	listeners map[*feed]struct{}
}

// NewAuth creates a signed-out identity provider.
func NewAuth(registry domain.PrincipalRegistry, log *logger.Logger) *Auth {
	return &Auth{
		registry:  registry,
		log:       log,
		listeners: make(map[*feed]struct{}),
	}
}

// OnAuthStateChange registers fn. fn runs on its own goroutine, first with
// the current principal and then after every change; a burst of changes
// may be observed as only the latest one.
func (a *Auth) OnAuthStateChange(fn func(domain.Principal)) func() {
	f := startFeed(context.Background(), func(context.Context) {
		fn(a.Current())
	})

	a.mu.Lock()
	a.listeners[f] = struct{}{}
	a.mu.Unlock()
	f.Poke()

	return func() {
		a.mu.Lock()
		delete(a.listeners, f)
		a.mu.Unlock()
		f.Stop()
	}
}

// SignInAnonymously issues a new principal and makes it current.
func (a *Auth) SignInAnonymously(ctx context.Context) (domain.Principal, error) {
	p, err := a.registry.Issue(ctx)
	if err != nil {
		return "", fmt.Errorf("anonymous sign-in: %w", err)
	}
	a.set(p)
	a.log.Info("signed in anonymously as %s", p)
	return p, nil
}

// Resume makes a previously issued principal current. It fails with
// ErrUnauthenticated if the registry does not know p.
func (a *Auth) Resume(ctx context.Context, p domain.Principal) error {
	ok, err := a.registry.Known(ctx, p)
	if err != nil {
		return fmt.Errorf("checking principal: %w", err)
	}
	if !ok {
		return fmt.Errorf("principal %s: %w", p, domain.ErrUnauthenticated)
	}
	a.set(p)
	a.log.Info("resumed principal %s", p)
	return nil
}

// SignOut clears the current principal.
func (a *Auth) SignOut() {
	a.set("")
}

// Current returns the signed-in principal, or "" if nobody is signed in.
func (a *Auth) Current() domain.Principal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Auth) set(p domain.Principal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == p {
		return
	}
	a.current = p
	for f := range a.listeners {
		f.Poke()
	}
}
