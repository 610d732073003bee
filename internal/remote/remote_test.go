package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/engine"
	"github.com/hammamikhairi/badbar/internal/logger"
	"github.com/hammamikhairi/badbar/internal/server"
	"github.com/hammamikhairi/badbar/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLog() *logger.Logger { return logger.New(logger.LevelOff, nil) }

// startServer runs a server over a fresh memory store.
func startServer(t *testing.T) (*Client, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(quietLog())
	srv := server.New(store, quietLog())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		store.Close()
	})

	c, err := New(ts.URL, quietLog(), WithHTTPClient(ts.Client()), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c, store
}

func signIn(t *testing.T, c *Client) *storage.Auth {
	t.Helper()
	auth := storage.NewAuth(c, quietLog())
	_, err := auth.SignInAnonymously(context.Background())
	require.NoError(t, err)
	return auth
}

func mojito(owner domain.Principal) domain.Recipe {
	return domain.Recipe{
		Name:         "Mojito",
		Ingredients:  []domain.Ingredient{{Name: "Rum", Amount: "50ml"}},
		Instructions: "Muddle, add rum, top with soda",
		Owner:        owner,
	}
}

func collect(t *testing.T, s *Store, q domain.Query) (<-chan domain.Snapshot, func()) {
	t.Helper()
	ch := make(chan domain.Snapshot, 16)
	unsub, err := s.Subscribe(context.Background(), q, func(snap domain.Snapshot) {
		ch <- snap
	})
	require.NoError(t, err)
	t.Cleanup(unsub)
	return ch, unsub
}

func next(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", quietLog())
	assert.Error(t, err)
	_, err = New("://", quietLog())
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	hc := &http.Client{}
	c, err := New("http://127.0.0.1:8787", quietLog(), WithHTTPClient(hc), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Same(t, hc, c.http)
	assert.Equal(t, time.Second, c.http.Timeout)
}

func TestRegistry(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	p, err := c.Issue(ctx)
	require.NoError(t, err)
	assert.True(t, p.Valid())

	ok, err := c.Known(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Known(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateAndWatch(t *testing.T) {
	c, _ := startServer(t)
	auth := signIn(t, c)
	s := c.Store(auth.Current)

	ch, _ := collect(t, s, domain.OwnedBy(auth.Current()))
	assert.Empty(t, next(t, ch))

	id, err := s.Create(context.Background(), domain.CollectionRecipes, mojito(auth.Current()))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap := next(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)
	assert.Equal(t, auth.Current(), snap[0].Owner)
}

func TestErrorsMapToSentinels(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	anon := c.Store(func() domain.Principal { return "" })
	_, err := anon.Create(ctx, domain.CollectionRecipes, mojito("x"))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	stranger := c.Store(func() domain.Principal { return "stranger" })
	_, err = stranger.Create(ctx, domain.CollectionRecipes, mojito("stranger"))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	a := signIn(t, c)
	b := signIn(t, c)
	s := c.Store(a.Current)

	_, err = s.Create(ctx, domain.CollectionRecipes, mojito(b.Current()))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	unnamed := mojito(a.Current())
	unnamed.Name = ""
	_, err = s.Create(ctx, domain.CollectionRecipes, unnamed)
	assert.ErrorIs(t, err, domain.ErrInvalidRecipe)
	assert.NotErrorIs(t, err, domain.ErrUnsupportedQuery)

	_, err = s.Subscribe(ctx, domain.OwnedBy(b.Current()), func(domain.Snapshot) {})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.Subscribe(ctx, domain.Query{Collection: domain.CollectionRecipes, Where: domain.Filter{Field: "image", Op: domain.OpEqual}}, func(domain.Snapshot) {})
	assert.ErrorIs(t, err, domain.ErrUnsupportedQuery)
}

func TestUnsubscribeClosesSocket(t *testing.T) {
	c, store := startServer(t)
	auth := signIn(t, c)
	s := c.Store(auth.Current)

	ch, unsub := collect(t, s, domain.OwnedBy(auth.Current()))
	next(t, ch)
	require.Eventually(t, func() bool { return store.Watches() == 1 }, 2*time.Second, 10*time.Millisecond)

	unsub()
	unsub()
	assert.Eventually(t, func() bool { return store.Watches() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestContextEndClosesSocket(t *testing.T) {
	c, store := startServer(t)
	auth := signIn(t, c)
	s := c.Store(auth.Current)

	ctx, cancel := context.WithCancel(context.Background())
	unsub, err := s.Subscribe(ctx, domain.OwnedBy(auth.Current()), func(domain.Snapshot) {})
	require.NoError(t, err)
	defer unsub()
	require.Eventually(t, func() bool { return store.Watches() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return store.Watches() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// Two engines against one server: the owner sees the recipe, the other
// principal does not.
func TestEnginesOverRemote(t *testing.T) {
	c, _ := startServer(t)

	start := func() *engine.Engine {
		auth := storage.NewAuth(c, quietLog())
		e := engine.New(auth, c.Store(auth.Current), quietLog())
		e.Start(context.Background())
		t.Cleanup(e.Stop)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		require.NoError(t, e.WaitReady(ctx))
		require.NoError(t, e.WaitSynced(ctx))
		return e
	}
	e1, e2 := start(), start()

	d := e1.Draft()
	d.SetName("Mojito")
	d.Add("Rum", "50ml")
	d.SetInstructions("Muddle, add rum, top with soda")
	require.NoError(t, e1.SubmitDraft(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, e1.WaitFor(ctx, func() bool { return len(e1.Recipes()) == 1 }))

	got := e1.Recipes()[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, e1.Principal(), got.Owner)
	assert.Empty(t, e2.Recipes())
}
