package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/badbar/internal/api"
	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface check.
var _ domain.DocumentStore = (*Store)(nil)

// TokenFunc returns the principal requests are made as.
type TokenFunc func() domain.Principal

// Store is a document store backed by the server. Each live query holds
// one WebSocket.
type Store struct {
	client *Client
	token  TokenFunc
}

// Store returns a document store that authenticates as token().
// storage.Auth.Current is the usual token source.
func (c *Client) Store(token TokenFunc) *Store {
	return &Store{client: c, token: token}
}

// Create posts r to the collection and returns the assigned ID.
func (s *Store) Create(ctx context.Context, collection string, r domain.Recipe) (string, error) {
	p := s.token()
	if !p.Valid() {
		return "", domain.ErrUnauthenticated
	}
	doc := r.Clone()
	doc.ID = ""

	var out api.CreateResponse
	path := fmt.Sprintf(api.PathDocuments, url.PathEscape(collection))
	if err := s.client.do(ctx, http.MethodPost, path, p, doc, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Subscribe opens a watch socket for q. fn runs on the socket's reader
// goroutine, never concurrently, and must not call the returned
// unsubscribe.
func (s *Store) Subscribe(ctx context.Context, q domain.Query, fn func(domain.Snapshot)) (func(), error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	p := s.token()
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}

	query := url.Values{}
	query.Set(api.ParamField, q.Where.Field)
	query.Set(api.ParamOp, string(q.Where.Op))
	query.Set(api.ParamValue, q.Where.Value)
	target := s.client.url("ws", fmt.Sprintf(api.PathWatch, url.PathEscape(q.Collection)), query)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+string(p))
	conn, resp, err := s.client.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			defer resp.Body.Close()
			return nil, responseError(resp)
		}
		return nil, fmt.Errorf("opening watch: %w", err)
	}

	w := &watch{
		conn: conn,
		done: make(chan struct{}),
		log:  s.client.log,
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.read(fn)
	go func() {
		select {
		case <-ctx.Done():
			w.close()
		case <-w.done:
		}
	}()

	s.client.log.Debug("watching %s where %s", q.Collection, q.Where)
	return w.stop, nil
}

type watch struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	log    *logger.Logger
}

func (w *watch) read(fn func(domain.Snapshot)) {
	defer close(w.done)
	defer w.close()
	for {
		var msg api.WatchMessage
		if err := w.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				w.log.Debug("watch ended: %v", err)
			}
			return
		}
		if msg.Type != api.MessageSnapshot {
			continue
		}
		fn(domain.Snapshot(msg.Recipes))
	}
}

// close shuts the socket, which ends the reader.
func (w *watch) close() {
	w.once.Do(func() {
		w.conn.Close()
	})
}

func (w *watch) stop() {
	w.cancel()
	w.close()
	<-w.done
}
