package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.DocumentStore     = (*BadgerStore)(nil)
	_ domain.PrincipalRegistry = (*BadgerStore)(nil)
)

// Key layout:
//
//	doc/<collection>/<owner>/<id> -> JSON recipe
//	principal/<uid>               -> issue time (RFC 3339)
//
// Owner queries become a prefix scan; IDs are UUIDv7 so a scan returns
// documents in creation order.
const (
	docPrefix       = "doc/"
	principalPrefix = "principal/"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration
	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns production defaults for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// BadgerStore persists recipes and issued principals in BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	hub *hub
	gc  *gcRunner
	log *logger.Logger

	closeOnce sync.Once
}

// OpenBadger opens (creating if needed) a Badger-backed store.
func OpenBadger(cfg BadgerConfig, log *logger.Logger) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	s := &BadgerStore{db: db, log: log}
	s.hub = newHub(s.query, log)

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, log)
		s.gc.Start()
	}

	log.Info("badger store opened (path=%q, in-memory=%v)", cfg.Path, cfg.InMemory)
	return s, nil
}

// Create stores r under a fresh ID and notifies matching queries.
func (s *BadgerStore) Create(ctx context.Context, collection string, r domain.Recipe) (string, error) {
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
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(collection, doc.Owner, id), data)
	})
	if err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}

	s.log.Debug("created %s/%s (%q, owner=%s)", collection, id, doc.Name, doc.Owner)
	s.hub.publish(collection, doc)
	return id, nil
}

// Subscribe starts a live query. See domain.DocumentStore.
func (s *BadgerStore) Subscribe(ctx context.Context, q domain.Query, fn func(domain.Snapshot)) (func(), error) {
	return s.hub.subscribe(ctx, q, fn)
}

func (s *BadgerStore) query(q domain.Query) (domain.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// Owner equality narrows the scan to one key range.
	prefix := []byte(docPrefix + q.Collection + "/")
	if q.Where.Field == domain.FieldOwner {
		prefix = []byte(docPrefix + q.Collection + "/" + q.Where.Value + "/")
	}

	out := domain.Snapshot{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc domain.Recipe
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			if q.Where.Matches(doc) {
				out = append(out, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Issue registers a new anonymous principal.
func (s *BadgerStore) Issue(ctx context.Context) (domain.Principal, error) {
	p := domain.Principal(uuid.NewString())
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(principalPrefix+string(p)), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return "", fmt.Errorf("registering principal: %w", err)
	}
	s.log.Debug("issued principal %s", p)
	return p, nil
}

// Known reports whether p was issued by this store.
func (s *BadgerStore) Known(ctx context.Context, p domain.Principal) (bool, error) {
	if !p.Valid() {
		return false, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(principalPrefix + string(p)))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("looking up principal: %w", err)
	}
}

// Watches returns the number of live queries.
func (s *BadgerStore) Watches() int { return s.hub.count() }

// Close stops live queries and GC, then closes the database. Safe to call
// more than once.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.hub.close()
		if s.gc != nil {
			s.gc.Stop()
		}
		err = s.db.Close()
	})
	return err
}

func docKey(collection string, owner domain.Principal, id string) []byte {
	return []byte(docPrefix + collection + "/" + string(owner) + "/" + id)
}

// gcRunner periodically rewrites the value log.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	log      *logger.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, log *logger.Logger) *gcRunner {
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. Non-blocking.
func (r *gcRunner) Start() { go r.loop() }

// Stop halts the loop and waits for it to exit.
func (r *gcRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) loop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing worth collecting.
			if err := r.db.RunValueLogGC(r.ratio); err == nil {
				r.log.Debug("badger value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				r.log.Warn("badger value log GC: %v", err)
			}
		}
	}
}

// badgerLogger adapts the application logger to badger.Logger. Badger's
// info chatter is demoted to debug.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.log.Error(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.log.Warn(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.log.Debug(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.log.Debug(format, args...) }
