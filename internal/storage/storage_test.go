package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// backend is what both store implementations offer.
type backend interface {
	domain.DocumentStore
	domain.PrincipalRegistry
	Watches() int
	Close() error
}

func quietLog() *logger.Logger { return logger.New(logger.LevelOff, nil) }

// backends returns a fresh instance of every store implementation.
func backends(t *testing.T) map[string]backend {
	t.Helper()

	bs, err := OpenBadger(BadgerConfig{InMemory: true}, quietLog())
	require.NoError(t, err)

	out := map[string]backend{
		"memory": NewMemoryStore(quietLog()),
		"badger": bs,
	}
	t.Cleanup(func() {
		for _, b := range out {
			b.Close()
		}
	})
	return out
}

// snapshots subscribes to q and returns a channel of delivered snapshots.
func snapshots(t *testing.T, s domain.DocumentStore, q domain.Query) (<-chan domain.Snapshot, func()) {
	t.Helper()
	ch := make(chan domain.Snapshot, 16)
	unsub, err := s.Subscribe(context.Background(), q, func(snap domain.Snapshot) {
		ch <- snap
	})
	require.NoError(t, err)
	return ch, unsub
}

// next waits for a snapshot satisfying ok.
func next(t *testing.T, ch <-chan domain.Snapshot, ok func(domain.Snapshot) bool) domain.Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if ok(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func hasLen(n int) func(domain.Snapshot) bool {
	return func(s domain.Snapshot) bool { return len(s) == n }
}

func mojito(owner domain.Principal) domain.Recipe {
	return domain.Recipe{
		Name: "Mojito",
		Ingredients: []domain.Ingredient{
			{Name: "Rum", Amount: "50ml"},
			{Name: "Mint", Amount: "10 leaves"},
		},
		Instructions: "Mix and serve",
		Owner:        owner,
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := snapshots(t, s, domain.OwnedBy("P1"))
			defer unsub()

			snap := next(t, ch, func(domain.Snapshot) bool { return true })
			assert.Empty(t, snap)
		})
	}
}

func TestCreateReachesOwnerOnly(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p1, unsub1 := snapshots(t, s, domain.OwnedBy("P1"))
			defer unsub1()
			p2, unsub2 := snapshots(t, s, domain.OwnedBy("P2"))
			defer unsub2()
			next(t, p1, hasLen(0))
			next(t, p2, hasLen(0))

			id, err := s.Create(ctx, domain.CollectionRecipes, mojito("P1"))
			require.NoError(t, err)
			require.NotEmpty(t, id)

			snap := next(t, p1, hasLen(1))
			want := mojito("P1")
			want.ID = id
			assert.Equal(t, want, snap[0])

			// P2 must not have been poked with P1's document.
			select {
			case snap := <-p2:
				for _, r := range snap {
					assert.Equal(t, domain.Principal("P2"), r.Owner)
				}
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestSnapshotKeepsCreationOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			names := []string{"Mojito", "Daiquiri", "Caipirinha"}
			for _, n := range names {
				r := mojito("P1")
				r.Name = n
				_, err := s.Create(ctx, domain.CollectionRecipes, r)
				require.NoError(t, err)
			}

			ch, unsub := snapshots(t, s, domain.OwnedBy("P1"))
			defer unsub()
			snap := next(t, ch, hasLen(3))
			for i, n := range names {
				assert.Equal(t, n, snap[i].Name)
			}
		})
	}
}

func TestQueryByName(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Create(ctx, domain.CollectionRecipes, mojito("P1"))
			require.NoError(t, err)
			_, err = s.Create(ctx, domain.CollectionRecipes, mojito("P2"))
			require.NoError(t, err)

			q := domain.Query{
				Collection: domain.CollectionRecipes,
				Where:      domain.Filter{Field: domain.FieldName, Op: domain.OpEqual, Value: "Mojito"},
			}
			ch, unsub := snapshots(t, s, q)
			defer unsub()
			next(t, ch, hasLen(2))
		})
	}
}

func TestSubscribeRejectsUnsupportedQuery(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := domain.OwnedBy("P1")
			q.Where.Op = ">="
			_, err := s.Subscribe(context.Background(), q, func(domain.Snapshot) {})
			assert.ErrorIs(t, err, domain.ErrUnsupportedQuery)

			q = domain.OwnedBy("P1")
			q.Where.Field = "instructions"
			_, err = s.Subscribe(context.Background(), q, func(domain.Snapshot) {})
			assert.ErrorIs(t, err, domain.ErrUnsupportedQuery)
		})
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ch, unsub := snapshots(t, s, domain.OwnedBy("P1"))
			next(t, ch, hasLen(0))
			require.Equal(t, 1, s.Watches())

			unsub()
			unsub() // idempotent
			assert.Equal(t, 0, s.Watches())

			_, err := s.Create(context.Background(), domain.CollectionRecipes, mojito("P1"))
			require.NoError(t, err)

			select {
			case snap := <-ch:
				t.Fatalf("snapshot delivered after unsubscribe: %+v", snap)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestSubscribeEndsWithContext(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			_, err := s.Subscribe(ctx, domain.OwnedBy("P1"), func(domain.Snapshot) {})
			require.NoError(t, err)

			cancel()
			assert.Eventually(t, func() bool { return s.Watches() == 0 }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())
			_, err := s.Subscribe(context.Background(), domain.OwnedBy("P1"), func(domain.Snapshot) {})
			assert.ErrorIs(t, err, domain.ErrClosed)
		})
	}
}

func TestPrincipalRegistry(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p, err := s.Issue(ctx)
			require.NoError(t, err)
			require.True(t, p.Valid())

			ok, err := s.Known(ctx, p)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Known(ctx, "stranger")
			require.NoError(t, err)
			assert.False(t, ok)

			q, err := s.Issue(ctx)
			require.NoError(t, err)
			assert.NotEqual(t, p, q)
		})
	}
}

func TestCreateRejectsEmptyCollection(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(context.Background(), "", mojito("P1"))
			assert.ErrorIs(t, err, domain.ErrUnsupportedQuery)
		})
	}
}
