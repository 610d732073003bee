// Package engine is the application root. It owns the identity session,
// the recipe catalog, the submission pipeline, the draft and the view
// router, and keeps them in dependency order: the catalog follows whatever
// principal the session holds.
package engine

import (
	"context"
	"sync"

	"github.com/hammamikhairi/badbar/internal/catalog"
	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/identity"
	"github.com/hammamikhairi/badbar/internal/logger"
	"github.com/hammamikhairi/badbar/internal/recipe"
	"github.com/hammamikhairi/badbar/internal/router"
	"github.com/hammamikhairi/badbar/internal/submit"
)

// Status is the coarse application state the UI switches on.
type Status int

const (
	// StatusPending means identity has not resolved yet.
	StatusPending Status = iota
	// StatusReady means a principal is available.
	StatusReady
	// StatusFailed means anonymous sign-in was rejected. Terminal.
	StatusFailed
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Option configures the engine.
type Option func(*Engine)

// WithOnChange registers a callback invoked after every identity or recipe
// list change. It runs on a background goroutine.
func WithOnChange(fn func()) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithNotifier sets where "recipe added" notifications go.
func WithNotifier(n domain.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// Engine wires the recipe manager together. It depends only on the
// domain ports and is fully testable with the in-memory store.
type Engine struct {
	session  *identity.Session
	catalog  *catalog.Catalog
	pipeline *submit.Pipeline
	draft    *recipe.Draft
	router   *router.Router
	log      *logger.Logger
	notifier domain.Notifier
	onChange func()

	mu     sync.Mutex
	ctx    context.Context
	signal chan struct{} // closed and replaced on every change
}

// New creates an engine over the given identity provider and document store.
func New(provider domain.IdentityProvider, docs domain.DocumentStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		draft:  recipe.NewDraft(),
		router: router.New(),
		log:    log,
		ctx:    context.Background(),
		signal: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.session = identity.New(provider, log.Named("identity"), identity.WithOnChange(e.identityChanged))
	e.catalog = catalog.New(docs, log.Named("catalog"), catalog.WithOnChange(func([]domain.Recipe) {
		e.changed()
	}))
	e.pipeline = submit.New(docs, e.session, e.notifier, log.Named("submit"))
	return e
}

// Start resolves identity. The catalog subscribes once a principal arrives.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	e.log.Debug("engine starting")
	e.session.Start(ctx)
}

func (e *Engine) identityChanged(st identity.State) {
	e.mu.Lock()
	ctx := e.ctx
	e.mu.Unlock()

	if st.Failed() {
		e.log.Error("identity unavailable: %v", st.Err)
	}
	// Errors are logged by the catalog and leave the list empty.
	_ = e.catalog.Bind(ctx, st.Principal)
	e.changed()
}

func (e *Engine) changed() {
	e.mu.Lock()
	close(e.signal)
	e.signal = make(chan struct{})
	e.mu.Unlock()

	if e.onChange != nil {
		e.onChange()
	}
}

// WaitFor blocks until cond holds, re-checking after every change.
func (e *Engine) WaitFor(ctx context.Context, cond func() bool) error {
	for {
		e.mu.Lock()
		ch := e.signal
		e.mu.Unlock()

		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// WaitReady blocks until identity has resolved one way or the other and
// returns the sign-in error, if any.
func (e *Engine) WaitReady(ctx context.Context) error {
	if err := e.WaitFor(ctx, func() bool { return e.Status() != StatusPending }); err != nil {
		return err
	}
	return e.AuthError()
}

// WaitSynced blocks until the catalog has received its first snapshot.
func (e *Engine) WaitSynced(ctx context.Context) error {
	return e.WaitFor(ctx, e.catalog.Synced)
}

// Status reports whether identity is pending, ready or failed.
func (e *Engine) Status() Status {
	st := e.session.State()
	switch {
	case st.Failed():
		return StatusFailed
	case st.Principal.Valid():
		return StatusReady
	default:
		return StatusPending
	}
}

// AuthError returns why anonymous sign-in failed, or nil.
func (e *Engine) AuthError() error { return e.session.State().Err }

// Principal returns the signed-in principal, or "".
func (e *Engine) Principal() domain.Principal { return e.session.Principal() }

// Recipes returns the current principal's recipes in snapshot order.
func (e *Engine) Recipes() []domain.Recipe { return e.catalog.Recipes() }

// Synced reports whether the recipe list reflects at least one snapshot.
func (e *Engine) Synced() bool { return e.catalog.Synced() }

// Draft returns the draft being edited.
func (e *Engine) Draft() *recipe.Draft { return e.draft }

// Router returns the view router.
func (e *Engine) Router() *router.Router { return e.router }

// SubmitDraft hands the draft to the pipeline and clears it. It returns
// ErrDraftIncomplete, leaving the draft untouched, when the name or the
// instructions are missing. The write itself happens in the background;
// the view is left as it is.
func (e *Engine) SubmitDraft(ctx context.Context) error {
	if !e.draft.Ready() {
		return domain.ErrDraftIncomplete
	}
	e.pipeline.Submit(ctx, e.draft.Recipe())
	e.draft.Reset()
	return nil
}

// Stop de-registers the identity listener, cancels the recipe subscription
// and waits for in-flight writes.
func (e *Engine) Stop() {
	e.session.Stop()
	e.catalog.Close()
	e.pipeline.Wait()
	e.log.Debug("engine stopped")
}
