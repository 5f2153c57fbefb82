package client

import (
	"context"
	"sync"
	"time"

	"memoria/api/internal/content"
	"memoria/api/internal/listquery"
)

// ListSource fetches one page of items for a module.
type ListSource interface {
	List(ctx context.Context, module content.Module, params listquery.Params) (ListPage, error)
}

const fetchTimeout = 10 * time.Second

// ListFetcher serializes the admin table's fetches. Filter changes can
// fire faster than the network answers; only the newest request's result
// is allowed to reach the listener, so the table never flashes a page
// that belongs to filters the editor already abandoned.
type ListFetcher struct {
	source ListSource
	module content.Module
	notify func(ListPage, error)

	timeout time.Duration

	mu  sync.Mutex
	seq uint64
}

func NewListFetcher(source ListSource, module content.Module, notify func(ListPage, error)) *ListFetcher {
	return &ListFetcher{source: source, module: module, notify: notify, timeout: fetchTimeout}
}

// Fetch starts a request for the given params and returns immediately.
// Results of superseded fetches are dropped.
func (f *ListFetcher) Fetch(params listquery.Params) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		page, err := f.source.List(ctx, f.module, params)

		f.mu.Lock()
		stale := seq != f.seq
		f.mu.Unlock()
		if stale {
			return
		}
		f.notify(page, err)
	}()
}

// Cancel invalidates any in-flight fetch without starting a new one.
func (f *ListFetcher) Cancel() {
	f.mu.Lock()
	f.seq++
	f.mu.Unlock()
}
