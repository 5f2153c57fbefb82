package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"memoria/api/internal/content"
	"memoria/api/internal/listquery"
)

type fakeListSource struct {
	fn func(params listquery.Params) (ListPage, error)
}

func (f *fakeListSource) List(ctx context.Context, module content.Module, params listquery.Params) (ListPage, error) {
	return f.fn(params)
}

type pageCollector struct {
	mu    sync.Mutex
	pages []ListPage
	errs  []error
}

func (c *pageCollector) notify(page ListPage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = append(c.pages, page)
	c.errs = append(c.errs, err)
}

func (c *pageCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

func (c *pageCollector) waitForCount(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d results, have %d", n, c.count())
}

func TestListFetcherDeliversResult(t *testing.T) {
	source := &fakeListSource{fn: func(params listquery.Params) (ListPage, error) {
		return ListPage{
			Items: []content.Item{{ID: "doc_1", Module: content.ModuleDocumentos}},
			Meta:  listquery.Meta{Page: params.Page, Limit: params.Limit, Total: 1, TotalPages: 1},
		}, nil
	}}
	collector := &pageCollector{}
	fetcher := NewListFetcher(source, content.ModuleDocumentos, collector.notify)

	fetcher.Fetch(listquery.Params{Page: 1, Limit: 20})
	collector.waitForCount(t, 1)

	if len(collector.pages[0].Items) != 1 || collector.errs[0] != nil {
		t.Fatalf("result = %+v err = %v", collector.pages[0], collector.errs[0])
	}
}

func TestListFetcherDropsSupersededResult(t *testing.T) {
	release := make(chan struct{})
	source := &fakeListSource{fn: func(params listquery.Params) (ListPage, error) {
		if params.Query == "antiga" {
			<-release
			return ListPage{Items: []content.Item{{ID: "stale"}}}, nil
		}
		return ListPage{Items: []content.Item{{ID: "fresh"}}}, nil
	}}
	collector := &pageCollector{}
	fetcher := NewListFetcher(source, content.ModuleDocumentos, collector.notify)

	fetcher.Fetch(listquery.Params{Query: "antiga"})
	time.Sleep(20 * time.Millisecond)
	fetcher.Fetch(listquery.Params{Query: "nova"})
	collector.waitForCount(t, 1)

	close(release)
	time.Sleep(30 * time.Millisecond)

	if got := collector.count(); got != 1 {
		t.Fatalf("results delivered = %d, want 1", got)
	}
	if collector.pages[0].Items[0].ID != "fresh" {
		t.Fatalf("delivered = %+v, want the newer fetch", collector.pages[0].Items)
	}
}

func TestListFetcherCancelSuppressesResult(t *testing.T) {
	release := make(chan struct{})
	source := &fakeListSource{fn: func(params listquery.Params) (ListPage, error) {
		<-release
		return ListPage{}, nil
	}}
	collector := &pageCollector{}
	fetcher := NewListFetcher(source, content.ModuleDocumentos, collector.notify)

	fetcher.Fetch(listquery.Params{})
	fetcher.Cancel()
	close(release)
	time.Sleep(30 * time.Millisecond)

	if got := collector.count(); got != 0 {
		t.Fatalf("results delivered = %d, want 0", got)
	}
}

func TestListFetcherReportsError(t *testing.T) {
	fetchErr := errors.New("backend down")
	source := &fakeListSource{fn: func(params listquery.Params) (ListPage, error) {
		return ListPage{}, fetchErr
	}}
	collector := &pageCollector{}
	fetcher := NewListFetcher(source, content.ModuleDocumentos, collector.notify)

	fetcher.Fetch(listquery.Params{})
	collector.waitForCount(t, 1)

	if !errors.Is(collector.errs[0], fetchErr) {
		t.Fatalf("err = %v", collector.errs[0])
	}
}
