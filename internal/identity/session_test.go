package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
	"github.com/hammamikhairi/badbar/internal/storage"
)

// fakeProvider reports nobody signed in and fails every sign-in.
type fakeProvider struct {
	err error

	mu       sync.Mutex
	attempts int
	fn       func(domain.Principal)
	removed  bool
}

func (f *fakeProvider) OnAuthStateChange(fn func(domain.Principal)) func() {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	go fn("")
	return func() {
		f.mu.Lock()
		f.removed = true
		f.mu.Unlock()
	}
}

func (f *fakeProvider) SignInAnonymously(ctx context.Context) (domain.Principal, error) {
	f.mu.Lock()
	f.attempts++
	f.mu.Unlock()
	return "", f.err
}

func (f *fakeProvider) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionSignsInAnonymously(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	auth := storage.NewAuth(storage.NewMemoryStore(log), log)

	var mu sync.Mutex
	var seen []State
	s := New(auth, log, WithOnChange(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	}))

	if !s.State().Pending() {
		t.Fatal("new session should be pending")
	}

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, "principal", func() bool { return s.Principal().Valid() })

	if s.Principal() != auth.Current() {
		t.Fatalf("session principal %q differs from provider %q", s.Principal(), auth.Current())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1].Principal != s.Principal() {
		t.Fatalf("change callback did not report the principal: %+v", seen)
	}
}

func TestSessionSignInFailureIsTerminal(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	p := &fakeProvider{err: errors.New("network-error")}

	s := New(p, log)
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, "failure", func() bool { return s.State().Failed() })

	st := s.State()
	if st.Err.Error() != "network-error" {
		t.Fatalf("expected network-error, got %v", st.Err)
	}
	if st.Principal.Valid() {
		t.Fatalf("failed session holds principal %q", st.Principal)
	}

	// A later signed-out notification must not trigger another attempt.
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()
	fn("")
	if n := p.Attempts(); n != 1 {
		t.Fatalf("expected exactly 1 sign-in attempt, got %d", n)
	}
}

func TestSessionStopDeregisters(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	p := &fakeProvider{err: errors.New("nope")}

	s := New(p, log)
	s.Start(context.Background())
	s.Start(context.Background()) // second start is ignored
	s.Stop()
	s.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.removed {
		t.Fatal("listener was not de-registered")
	}
}

func TestSessionKeepsResumedPrincipal(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := storage.NewMemoryStore(log)
	ctx := context.Background()

	known, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	auth := storage.NewAuth(store, log)
	if err := auth.Resume(ctx, known); err != nil {
		t.Fatalf("resume: %v", err)
	}

	s := New(auth, log)
	s.Start(ctx)
	defer s.Stop()

	waitFor(t, "principal", func() bool { return s.Principal().Valid() })
	if s.Principal() != known {
		t.Fatalf("expected resumed principal %q, got %q", known, s.Principal())
	}
}
