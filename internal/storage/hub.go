package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// loadFunc evaluates a query against the backing store.
type loadFunc func(q domain.Query) (domain.Snapshot, error)

// hub tracks live queries and re-delivers full snapshots when a write may
// have changed their result set.
type hub struct {
	mu      sync.Mutex
	watches map[*watch]struct{}
	closed  bool
	load    loadFunc
	log     *logger.Logger
}

type watch struct {
	q    domain.Query
	feed *feed
}

func newHub(load loadFunc, log *logger.Logger) *hub {
	return &hub{
		watches: make(map[*watch]struct{}),
		load:    load,
		log:     log,
	}
}

// subscribe registers fn for q and schedules the initial snapshot.
func (h *hub) subscribe(ctx context.Context, q domain.Query, fn func(domain.Snapshot)) (func(), error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, domain.ErrClosed
	}

	w := &watch{q: q}
	w.feed = startFeed(ctx, func(ctx context.Context) {
		snap, err := h.load(q)
		if err != nil {
			h.log.Error("evaluating %s on %s: %v", q.Where, q.Collection, err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		fn(snap)
	})
	h.watches[w] = struct{}{}
	w.feed.Poke()

	// Drop the watch if the caller's context ends first.
	go func() {
		<-w.feed.Done()
		h.remove(w)
	}()

	h.log.Debug("watching %s where %s (%d live)", q.Collection, q.Where, len(h.watches))

	return func() {
		h.remove(w)
		w.feed.Stop()
	}, nil
}

func (h *hub) remove(w *watch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watches, w)
}

// publish pokes every watch on collection whose filter matches r.
func (h *hub) publish(collection string, r domain.Recipe) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for w := range h.watches {
		if w.q.Collection == collection && w.q.Where.Matches(r) {
			w.feed.Poke()
			n++
		}
	}
	h.log.Debug("change in %s reached %d watch(es)", collection, n)
}

// count returns the number of live watches.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watches)
}

// close stops every watch. Later subscriptions fail with ErrClosed.
func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	watches := make([]*watch, 0, len(h.watches))
	for w := range h.watches {
		watches = append(watches, w)
	}
	h.watches = make(map[*watch]struct{})
	h.mu.Unlock()

	for _, w := range watches {
		w.feed.Stop()
	}
}
