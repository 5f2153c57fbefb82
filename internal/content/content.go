// Package content defines the shared content model for the archive:
// the closed set of modules, publication statuses, and the item fields
// the lifecycle and route engines operate on. Module-specific payloads
// (pages, photos, citations) are opaque JSON to everything in this package.
package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// Module is one of the six content types of the public archive.
type Module string

const (
	ModuleDocumentos        Module = "documentos"
	ModuleDepoimentos       Module = "depoimentos"
	ModuleReferencias       Module = "referencias"
	ModuleJornais           Module = "jornais"
	ModuleAcervoFotografico Module = "acervo-fotografico"
	ModuleAcervosPessoais   Module = "acervos-pessoais"
)

var allModules = []Module{
	ModuleDocumentos,
	ModuleDepoimentos,
	ModuleReferencias,
	ModuleJornais,
	ModuleAcervoFotografico,
	ModuleAcervosPessoais,
}

// Modules returns the six modules in their canonical display order.
func Modules() []Module {
	out := make([]Module, len(allModules))
	copy(out, allModules)
	return out
}

// ParseModule validates a module segment as received from a URL path.
func ParseModule(raw string) (Module, error) {
	for _, m := range allModules {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown module %q", raw)
}

// Status is the publication state of a content item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus validates a status value from a request body or query.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusPublished, StatusArchived:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Item is a content item as seen by the engine. Module-specific fields
// live in Payload and are never inspected here.
type Item struct {
	ID                string          `json:"id"`
	Module            Module          `json:"module"`
	Title             string          `json:"title"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description,omitempty"`
	CoverImageURL     string          `json:"coverImageUrl,omitempty"`
	Status            Status          `json:"status"`
	Tags              []string        `json:"tags"`
	RelatedPersonSlug string          `json:"relatedPersonSlug,omitempty"`
	RelatedFundKey    string          `json:"relatedFundKey,omitempty"`
	Featured          bool            `json:"featured"`
	SortOrder         int             `json:"sortOrder"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	PublishedAt       *time.Time      `json:"publishedAt,omitempty"`
}

// HasTag reports whether the item carries the exact tag.
func (i Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// BatchFailure records one failed item of a bulk operation.
type BatchFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BatchResult is the structured outcome of a best-effort bulk operation.
// A failure partway through never rolls back earlier items; callers report
// both counts and re-query the list to reconcile displayed state.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

func (r BatchResult) SucceededCount() int { return len(r.Succeeded) }
func (r BatchResult) FailedCount() int    { return len(r.Failed) }

// AllSucceeded reports whether every item of the batch went through.
func (r BatchResult) AllSucceeded() bool { return len(r.Failed) == 0 }
