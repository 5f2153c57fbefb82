// Package lifecycle enforces the publication state machine. Every
// transition between draft, published and archived is legal; the rules
// only govern side effects on publishedAt and how bulk transitions
// report partial failure.
package lifecycle

import (
	"context"
	"time"

	"memoria/api/internal/content"
)

// ApplyTransition mutates the item for a status change. Entering
// published stamps publishedAt once and never overwrites it on
// republish; entering archived preserves publishedAt so history
// survives the round trip back to published.
func ApplyTransition(item *content.Item, to content.Status, now time.Time) {
	item.Status = to
	if to == content.StatusPublished && item.PublishedAt == nil {
		stamped := now
		item.PublishedAt = &stamped
	}
	item.UpdatedAt = now
}

// StatusPatcher is the backend operation a Controller drives. The store
// and the admin API client both satisfy it.
type StatusPatcher interface {
	PatchStatus(ctx context.Context, module content.Module, id string, status content.Status) error
}

// Controller executes status transitions against a backend.
type Controller struct {
	patcher StatusPatcher
}

func NewController(patcher StatusPatcher) *Controller {
	return &Controller{patcher: patcher}
}

// Set transitions a single item.
func (c *Controller) Set(ctx context.Context, module content.Module, id string, status content.Status) error {
	return c.patcher.PatchStatus(ctx, module, id, status)
}

// SetBulk transitions the selected items one request at a time, awaiting
// each before issuing the next. There is no multi-item transaction: a
// failure on one item does not undo or skip the others, and the result
// reports both sides so callers can surface a partial-failure count.
func (c *Controller) SetBulk(ctx context.Context, module content.Module, ids []string, status content.Status) content.BatchResult {
	var result content.BatchResult
	for _, id := range ids {
		if err := c.patcher.PatchStatus(ctx, module, id, status); err != nil {
			result.Failed = append(result.Failed, content.BatchFailure{ID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}
