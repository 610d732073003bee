// Package submit forwards finished drafts to the document store.
package submit

import (
	"context"
	"sync"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// MessageAdded is the notification shown after a successful write.
const MessageAdded = "Recipe added"

// PrincipalSource reports who is signed in. identity.Session satisfies it.
type PrincipalSource interface {
	Principal() domain.Principal
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCollection overrides the target collection.
func WithCollection(name string) Option {
	return func(p *Pipeline) {
		p.collection = name
	}
}

// WithOnCreated registers a callback invoked with every created recipe.
func WithOnCreated(fn func(domain.Recipe)) Option {
	return func(p *Pipeline) {
		p.onCreated = fn
	}
}

// Pipeline writes recipes on behalf of the current principal. Writes are
// fire-and-forget: Submit returns before the store answers, and the local
// list only changes when the live query reports the new document.
type Pipeline struct {
	docs       domain.DocumentStore
	identity   PrincipalSource
	notifier   domain.Notifier
	log        *logger.Logger
	collection string
	onCreated  func(domain.Recipe)

	wg sync.WaitGroup
}

// New creates a submission pipeline. notifier may be nil.
func New(docs domain.DocumentStore, identity PrincipalSource, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		docs:       docs,
		identity:   identity,
		notifier:   notifier,
		log:        log,
		collection: domain.CollectionRecipes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit stamps draft with the current principal and creates it in the
// background. Without a principal the call is dropped. Failures are logged
// and otherwise swallowed.
func (p *Pipeline) Submit(ctx context.Context, draft domain.Recipe) {
	owner := p.identity.Principal()
	if !owner.Valid() {
		p.log.Debug("dropping submission of %q: not signed in", draft.Name)
		return
	}

	record := draft.Clone()
	record.ID = ""
	record.Owner = owner

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.create(ctx, record)
	}()
}

func (p *Pipeline) create(ctx context.Context, record domain.Recipe) {
	id, err := p.docs.Create(ctx, p.collection, record)
	if err != nil {
		p.log.Error("adding recipe %q: %v", record.Name, err)
		return
	}
	record.ID = id
	p.log.Info("recipe added with id %s", id)

	if p.onCreated != nil {
		p.onCreated(record)
	}
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, MessageAdded); err != nil {
			p.log.Warn("notifying: %v", err)
		}
	}
}

// Wait blocks until every dispatched write has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
