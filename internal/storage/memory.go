// Package storage provides document store and principal registry
// implementations backing the recipe manager.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.DocumentStore     = (*MemoryStore)(nil)
	_ domain.PrincipalRegistry = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory document store and principal registry.
// Documents are kept in insertion order. Safe for concurrent access.
type MemoryStore struct {
	mu         sync.RWMutex
	docs       map[string][]domain.Recipe
	principals map[domain.Principal]struct{}
	hub        *hub
	log        *logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	s := &MemoryStore{
		docs:       make(map[string][]domain.Recipe),
		principals: make(map[domain.Principal]struct{}),
		log:        log,
	}
	s.hub = newHub(s.query, log)
	return s
}

// Create stores a copy of r under a fresh ID and notifies matching queries.
func (s *MemoryStore) Create(ctx context.Context, collection string, r domain.Recipe) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("%w: empty collection", domain.ErrUnsupportedQuery)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := newDocumentID()
	if err != nil {
		return "", err
	}

	doc := r.Clone()
	doc.ID = id

	s.mu.Lock()
	s.docs[collection] = append(s.docs[collection], doc)
	s.mu.Unlock()

	s.log.Debug("created %s/%s (%q, owner=%s)", collection, id, doc.Name, doc.Owner)
	s.hub.publish(collection, doc)
	return id, nil
}

// Subscribe starts a live query. See domain.DocumentStore.
func (s *MemoryStore) Subscribe(ctx context.Context, q domain.Query, fn func(domain.Snapshot)) (func(), error) {
	return s.hub.subscribe(ctx, q, fn)
}

// Get returns a document by ID.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs[collection] {
		if doc.ID == id {
			return doc.Clone(), nil
		}
	}
	s.log.Debug("document not found: %s/%s", collection, id)
	return domain.Recipe{}, domain.ErrNotFound
}

func (s *MemoryStore) query(q domain.Query) (domain.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := domain.Snapshot{}
	for _, doc := range s.docs[q.Collection] {
		if q.Where.Matches(doc) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// Issue registers a new anonymous principal.
func (s *MemoryStore) Issue(ctx context.Context) (domain.Principal, error) {
	p := domain.Principal(uuid.NewString())

	s.mu.Lock()
	s.principals[p] = struct{}{}
	s.mu.Unlock()

	s.log.Debug("issued principal %s", p)
	return p, nil
}

// Known reports whether p was issued by this store.
func (s *MemoryStore) Known(ctx context.Context, p domain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.principals[p]
	return ok, nil
}

// Watches returns the number of live queries.
func (s *MemoryStore) Watches() int { return s.hub.count() }

// Close stops every live query.
func (s *MemoryStore) Close() error {
	s.hub.close()
	return nil
}

// newDocumentID returns a time-ordered document ID.
func newDocumentID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating document id: %w", err)
	}
	return id.String(), nil
}
