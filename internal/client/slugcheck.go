package client

import (
	"context"
	"sync"
	"time"

	"memoria/api/internal/content"
	"memoria/api/internal/slug"
)

// CheckState is the slug availability indicator shown next to the field.
type CheckState string

const (
	CheckIdle      CheckState = "idle"
	CheckChecking  CheckState = "checking"
	CheckAvailable CheckState = "available"
	CheckTaken     CheckState = "taken"
	CheckError     CheckState = "error"
)

// CheckResult is pushed to the listener after every state change.
type CheckResult struct {
	State CheckState
	Slug  string // normalized form that was probed
	Err   error
}

// SlugProber answers whether a slug is in use and by which item.
type SlugProber interface {
	ProbeSlug(ctx context.Context, module content.Module, slug string) (taken bool, ownerID string, err error)
}

const (
	debounceDelay = 320 * time.Millisecond
	probeTimeout  = 5 * time.Second
)

// Checker debounces keystrokes into uniqueness probes. Each Input call
// bumps a sequence number; a probe that returns after a newer Input has
// been accepted is discarded, so the indicator always reflects the
// latest text even when responses arrive out of order.
type Checker struct {
	prober SlugProber
	module content.Module
	notify func(CheckResult)

	// currentItemID is the item being edited, or empty for a new item.
	// A probe that finds the slug owned by this item reports available.
	currentItemID string

	delay   time.Duration
	timeout time.Duration

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

func NewChecker(prober SlugProber, module content.Module, currentItemID string, notify func(CheckResult)) *Checker {
	return &Checker{
		prober:        prober,
		module:        module,
		currentItemID: currentItemID,
		notify:        notify,
		delay:         debounceDelay,
		timeout:       probeTimeout,
	}
}

// Input feeds the checker the field's current text. Normalization and
// local validation run immediately; the network probe only fires once
// the text has been stable for the debounce window.
func (c *Checker) Input(raw string) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	result := slug.Check(raw)
	if !result.Valid {
		c.mu.Unlock()
		c.notify(CheckResult{State: CheckIdle, Slug: result.Slug})
		return
	}

	normalized := result.Slug
	c.timer = time.AfterFunc(c.delay, func() {
		c.probe(seq, normalized)
	})
	c.mu.Unlock()

	c.notify(CheckResult{State: CheckChecking, Slug: normalized})
}

// Stop cancels any pending probe. Safe to call multiple times.
func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Checker) probe(seq uint64, normalized string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	taken, ownerID, err := c.prober.ProbeSlug(ctx, c.module, normalized)

	c.mu.Lock()
	stale := seq != c.seq
	c.mu.Unlock()
	if stale {
		return
	}

	switch {
	case err != nil:
		c.notify(CheckResult{State: CheckError, Slug: normalized, Err: err})
	case taken && ownerID != c.currentItemID:
		c.notify(CheckResult{State: CheckTaken, Slug: normalized})
	default:
		c.notify(CheckResult{State: CheckAvailable, Slug: normalized})
	}
}
