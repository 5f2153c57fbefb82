package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"memoria/api/internal/content"
)

func TestApplyTransitionSetsPublishedAtOnce(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	item := content.Item{Status: content.StatusDraft}

	ApplyTransition(&item, content.StatusPublished, now)
	if item.Status != content.StatusPublished {
		t.Fatalf("status = %s", item.Status)
	}
	if item.PublishedAt == nil || !item.PublishedAt.Equal(now) {
		t.Fatalf("publishedAt = %v, want %v", item.PublishedAt, now)
	}

	later := now.Add(48 * time.Hour)
	ApplyTransition(&item, content.StatusPublished, later)
	if !item.PublishedAt.Equal(now) {
		t.Errorf("republish overwrote publishedAt: %v", item.PublishedAt)
	}
}

func TestApplyTransitionArchivePreservesPublishedAt(t *testing.T) {
	now := time.Now().UTC()
	item := content.Item{Status: content.StatusDraft}
	ApplyTransition(&item, content.StatusPublished, now)

	ApplyTransition(&item, content.StatusArchived, now.Add(time.Hour))
	if item.Status != content.StatusArchived {
		t.Fatalf("status = %s", item.Status)
	}
	if item.PublishedAt == nil || !item.PublishedAt.Equal(now) {
		t.Errorf("archiving cleared publishedAt")
	}
}

func TestApplyTransitionAnyToAny(t *testing.T) {
	statuses := []content.Status{content.StatusDraft, content.StatusPublished, content.StatusArchived}
	for _, from := range statuses {
		for _, to := range statuses {
			item := content.Item{Status: from}
			ApplyTransition(&item, to, time.Now())
			if item.Status != to {
				t.Errorf("%s -> %s: status = %s", from, to, item.Status)
			}
		}
	}
}

type fakePatcher struct {
	calls  []string
	failOn map[string]error
}

func (f *fakePatcher) PatchStatus(_ context.Context, _ content.Module, id string, _ content.Status) error {
	f.calls = append(f.calls, id)
	if err, ok := f.failOn[id]; ok {
		return err
	}
	return nil
}

func TestSetBulkPartialFailure(t *testing.T) {
	boom := errors.New("backend unavailable")
	patcher := &fakePatcher{failOn: map[string]error{"b": boom}}
	c := NewController(patcher)

	result := c.SetBulk(context.Background(), content.ModuleDocumentos, []string{"a", "b", "c"}, content.StatusArchived)

	if len(patcher.calls) != 3 {
		t.Fatalf("expected all items attempted, got calls %v", patcher.calls)
	}
	if result.SucceededCount() != 2 || result.FailedCount() != 1 {
		t.Fatalf("result = %d ok / %d failed", result.SucceededCount(), result.FailedCount())
	}
	if result.Failed[0].ID != "b" || !errors.Is(result.Failed[0].Err, boom) {
		t.Errorf("failure record = %+v", result.Failed[0])
	}
	if result.AllSucceeded() {
		t.Error("AllSucceeded should be false")
	}
}

func TestSetBulkSequentialOrder(t *testing.T) {
	patcher := &fakePatcher{}
	c := NewController(patcher)
	ids := []string{"x", "y", "z"}
	c.SetBulk(context.Background(), content.ModuleJornais, ids, content.StatusPublished)
	for i, id := range ids {
		if patcher.calls[i] != id {
			t.Fatalf("call order %v, want %v", patcher.calls, ids)
		}
	}
}
