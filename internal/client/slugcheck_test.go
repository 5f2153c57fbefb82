package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"memoria/api/internal/content"
)

type fakeProber struct {
	mu    sync.Mutex
	calls []string
	fn    func(slug string) (bool, string, error)
}

func (f *fakeProber) ProbeSlug(ctx context.Context, module content.Module, slug string) (bool, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, slug)
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(slug)
	}
	return false, "", nil
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type resultCollector struct {
	mu      sync.Mutex
	results []CheckResult
}

func (c *resultCollector) notify(r CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *resultCollector) last() (CheckResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.results) == 0 {
		return CheckResult{}, false
	}
	return c.results[len(c.results)-1], true
}

func (c *resultCollector) waitFor(t *testing.T, state CheckState) CheckResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if last, ok := c.last(); ok && last.State == state {
			return last
		}
		time.Sleep(5 * time.Millisecond)
	}
	last, _ := c.last()
	t.Fatalf("timed out waiting for state %q, last = %+v", state, last)
	return CheckResult{}
}

func newTestChecker(prober SlugProber, currentItemID string, collector *resultCollector) *Checker {
	checker := NewChecker(prober, content.ModuleDocumentos, currentItemID, collector.notify)
	checker.delay = 10 * time.Millisecond
	return checker
}

func TestCheckerDebouncesBursts(t *testing.T) {
	prober := &fakeProber{}
	collector := &resultCollector{}
	checker := newTestChecker(prober, "", collector)
	defer checker.Stop()

	for _, text := range []string{"car", "cart", "carta", "carta d", "carta do sindicato"} {
		checker.Input(text)
	}
	collector.waitFor(t, CheckAvailable)

	if got := prober.callCount(); got != 1 {
		t.Fatalf("probe calls = %d, want 1", got)
	}
	prober.mu.Lock()
	probed := prober.calls[0]
	prober.mu.Unlock()
	if probed != "carta-do-sindicato" {
		t.Fatalf("probed slug = %q", probed)
	}
}

func TestCheckerTakenSlug(t *testing.T) {
	prober := &fakeProber{fn: func(slug string) (bool, string, error) {
		return true, "doc_other", nil
	}}
	collector := &resultCollector{}
	checker := newTestChecker(prober, "", collector)
	defer checker.Stop()

	checker.Input("carta")
	result := collector.waitFor(t, CheckTaken)
	if result.Slug != "carta" {
		t.Fatalf("slug = %q", result.Slug)
	}
}

func TestCheckerOwnSlugIsAvailable(t *testing.T) {
	prober := &fakeProber{fn: func(slug string) (bool, string, error) {
		return true, "doc_mine", nil
	}}
	collector := &resultCollector{}
	checker := newTestChecker(prober, "doc_mine", collector)
	defer checker.Stop()

	checker.Input("carta")
	collector.waitFor(t, CheckAvailable)
}

func TestCheckerInvalidInputGoesIdle(t *testing.T) {
	prober := &fakeProber{}
	collector := &resultCollector{}
	checker := newTestChecker(prober, "", collector)
	defer checker.Stop()

	checker.Input("ab")
	result := collector.waitFor(t, CheckIdle)
	if result.Err != nil {
		t.Fatalf("err = %v", result.Err)
	}
	time.Sleep(30 * time.Millisecond)
	if got := prober.callCount(); got != 0 {
		t.Fatalf("probe calls = %d, want 0", got)
	}
}

func TestCheckerDropsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	prober := &fakeProber{fn: func(slug string) (bool, string, error) {
		if slug == "antiga" {
			<-release
			return true, "doc_other", nil // would flip the indicator to taken
		}
		return false, "", nil
	}}
	collector := &resultCollector{}
	checker := newTestChecker(prober, "", collector)
	defer checker.Stop()

	checker.Input("antiga")
	time.Sleep(30 * time.Millisecond) // let the slow probe start
	checker.Input("nova")
	collector.waitFor(t, CheckAvailable)

	close(release)
	time.Sleep(30 * time.Millisecond)

	last, _ := collector.last()
	if last.State != CheckAvailable || last.Slug != "nova" {
		t.Fatalf("stale response overwrote the indicator: %+v", last)
	}
}

func TestCheckerProbeErrorSurfaces(t *testing.T) {
	probeErr := errors.New("backend down")
	prober := &fakeProber{fn: func(slug string) (bool, string, error) {
		return false, "", probeErr
	}}
	collector := &resultCollector{}
	checker := newTestChecker(prober, "", collector)
	defer checker.Stop()

	checker.Input("carta")
	result := collector.waitFor(t, CheckError)
	if !errors.Is(result.Err, probeErr) {
		t.Fatalf("err = %v", result.Err)
	}
}
