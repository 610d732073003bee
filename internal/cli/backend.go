package cli

import (
	"fmt"

	"github.com/hammamikhairi/badbar/internal/config"
	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/remote"
	"github.com/hammamikhairi/badbar/internal/server"
	"github.com/hammamikhairi/badbar/internal/storage"
)

// backend is everything a client command needs from storage.
type backend struct {
	auth  *storage.Auth
	docs  domain.DocumentStore
	close func() error
}

// localStore is a backend the process owns outright.
type localStore interface {
	server.Backend
	Close() error
}

// openLocal opens the memory or badger store.
func (o *RootOptions) openLocal() (localStore, error) {
	switch o.cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(o.log.Named("memory")), nil
	case config.BackendBadger:
		bc := storage.DefaultBadgerConfig(o.cfg.DB.Path)
		bc.InMemory = o.cfg.DB.InMemory
		return storage.OpenBadger(bc, o.log.Named("store"))
	default:
		return nil, fmt.Errorf("backend %q cannot be served locally", o.cfg.Backend)
	}
}

// openBackend connects to the configured backend.
func (o *RootOptions) openBackend() (*backend, error) {
	if o.cfg.Backend == config.BackendRemote {
		client, err := remote.New(o.cfg.Server.URL, o.log.Named("remote"), remote.WithTimeout(o.cfg.Server.Timeout))
		if err != nil {
			return nil, err
		}
		auth := storage.NewAuth(client, o.log.Named("auth"))
		return &backend{
			auth:  auth,
			docs:  client.Store(auth.Current),
			close: func() error { return nil },
		}, nil
	}

	store, err := o.openLocal()
	if err != nil {
		return nil, err
	}
	return &backend{
		auth:  storage.NewAuth(store, o.log.Named("auth")),
		docs:  store,
		close: store.Close,
	}, nil
}
