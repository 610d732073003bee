package storage

import (
	"context"
	"sync"
)

// feed runs fn on its own goroutine each time it is poked. Pokes that
// arrive while fn is running collapse into one further call, so fn always
// observes the latest state and calls are never concurrent or reordered.
type feed struct {
	poke   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startFeed(ctx context.Context, fn func(ctx context.Context)) *feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &feed{
		poke:   make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run(ctx, fn)
	return f
}

func (f *feed) run(ctx context.Context, fn func(ctx context.Context)) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.poke:
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}
}

// Poke schedules a call to fn. Never blocks.
func (f *feed) Poke() {
	select {
	case f.poke <- struct{}{}:
	default:
	}
}

// Stop cancels the feed and waits for an in-flight call to return. It must
// not be called from inside fn.
func (f *feed) Stop() {
	f.once.Do(f.cancel)
	<-f.done
}

// Done is closed once the feed has stopped.
func (f *feed) Done() <-chan struct{} { return f.done }
