// Package search indexes content items for the admin search box.
// Meilisearch is the primary backend; PostgreSQL full-text search is the
// fallback when it is down.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	Module  string `json:"module"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterModule string // empty = all modules
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ItemRecord is the data indexed for each content item.
type ItemRecord struct {
	ID          string   `json:"id"`
	Module      string   `json:"module"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push content items into a search index.
type Indexer interface {
	IndexItem(record ItemRecord) error
	DeleteItem(id string) error
}
