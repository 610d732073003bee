package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/engine"
)

// readyTimeout bounds how long one-shot commands wait for sign-in and the
// first snapshot.
const readyTimeout = 30 * time.Second

// startEngine resumes principal (if set) or signs in anonymously, and
// waits until the engine has a principal and a first snapshot.
func startEngine(ctx context.Context, b *backend, opts *RootOptions, principal string, engOpts ...engine.Option) (*engine.Engine, error) {
	if principal != "" {
		if err := b.auth.Resume(ctx, domain.Principal(principal)); err != nil {
			return nil, err
		}
	}

	eng := engine.New(b.auth, b.docs, opts.log.Named("engine"), engOpts...)
	eng.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := eng.WaitReady(waitCtx); err != nil {
		eng.Stop()
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if err := eng.WaitSynced(waitCtx); err != nil {
		eng.Stop()
		return nil, fmt.Errorf("loading recipes: %w", err)
	}
	return eng, nil
}
