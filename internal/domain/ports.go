package domain

import "context"

// IdentityProvider issues anonymous principals and reports who is signed in.
// Implementations can be in-process (memory, Badger) or remote.
type IdentityProvider interface {
	// OnAuthStateChange registers fn and calls it asynchronously with the
	// current principal, then again on every change. The returned func
	// de-registers fn.
	OnAuthStateChange(fn func(Principal)) (unsubscribe func())
	SignInAnonymously(ctx context.Context) (Principal, error)
}

// DocumentStore holds recipe documents and serves live queries.
type DocumentStore interface {
	// Subscribe calls fn with the full result set of q on registration and
	// after every change that may affect it. fn is never called after the
	// returned unsubscribe func returns.
	Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (unsubscribe func(), err error)
	// Create stores r in collection and returns the assigned ID.
	Create(ctx context.Context, collection string, r Recipe) (string, error)
}

// PrincipalRegistry issues and verifies anonymous principals. It is the
// server-side half of an IdentityProvider.
type PrincipalRegistry interface {
	Issue(ctx context.Context) (Principal, error)
	Known(ctx context.Context, p Principal) (bool, error)
}

// Notifier delivers transient messages to the user. Implementations can
// print a line or flash a toast in the terminal UI.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
