// Package listquery builds canonical list-endpoint query strings and
// reconciles server pagination metadata into a shape display controls
// can always trust.
package listquery

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Sort is one entry of the closed sort enumeration. Anything outside it
// is omitted from the query so the backend applies its own default
// ordering instead of a client-side guess.
type Sort string

const (
	SortUpdatedDesc   Sort = "updated-desc"
	SortUpdatedAsc    Sort = "updated-asc"
	SortCreatedDesc   Sort = "created-desc"
	SortCreatedAsc    Sort = "created-asc"
	SortPublishedDesc Sort = "published-desc"
	SortPublishedAsc  Sort = "published-asc"
	SortTitleAsc      Sort = "title-asc"
	SortTitleDesc     Sort = "title-desc"
	SortFeaturedAsc   Sort = "featured-asc"
	SortFeaturedDesc  Sort = "featured-desc"
	SortOrderAsc      Sort = "order-asc"
	SortOrderDesc     Sort = "order-desc"
)

var validSorts = map[Sort]bool{
	SortUpdatedDesc: true, SortUpdatedAsc: true,
	SortCreatedDesc: true, SortCreatedAsc: true,
	SortPublishedDesc: true, SortPublishedAsc: true,
	SortTitleAsc: true, SortTitleDesc: true,
	SortFeaturedAsc: true, SortFeaturedDesc: true,
	SortOrderAsc: true, SortOrderDesc: true,
}

// ParseSort validates a raw sort key against the enumeration.
func ParseSort(raw string) (Sort, bool) {
	s := Sort(raw)
	return s, validSorts[s]
}

// Field returns the logical sort field ("updated", "title", ...).
func (s Sort) Field() string {
	if i := strings.LastIndex(string(s), "-"); i > 0 {
		return string(s)[:i]
	}
	return string(s)
}

// Descending reports the sort direction.
func (s Sort) Descending() bool {
	return strings.HasSuffix(string(s), "-desc")
}

// Params are the inputs of a list query. Blank filters are omitted from
// the query string entirely rather than sent as empty-string constraints.
type Params struct {
	Page       int
	Limit      int
	Query      string
	Status     string
	Tag        string
	PersonSlug string
	FundKey    string
	Featured   *bool
	Slug       string
	Sort       string
}

// BuildQuery encodes the params into a canonical query string: page and
// limit always present (defaulted), everything else only when set, keys
// in url.Values' sorted order so identical params encode identically.
func BuildQuery(p Params) string {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := p.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))

	setIf := func(key, val string) {
		if strings.TrimSpace(val) != "" {
			values.Set(key, val)
		}
	}
	setIf("q", p.Query)
	setIf("status", p.Status)
	setIf("tag", p.Tag)
	setIf("personSlug", p.PersonSlug)
	setIf("fundKey", p.FundKey)
	setIf("slug", p.Slug)
	if p.Featured != nil {
		values.Set("featured", strconv.FormatBool(*p.Featured))
	}
	if sort, ok := ParseSort(p.Sort); ok {
		values.Set("sort", string(sort))
	}

	return values.Encode()
}

// Meta is pagination metadata as reported by the list endpoint.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// ReconcileMeta turns a missing or malformed server meta into a safe
// shape: defaults for nil, clamped values otherwise, with totalPages,
// hasNext and hasPrev recomputed for consistency.
func ReconcileMeta(m *Meta) Meta {
	if m == nil {
		return Meta{Page: DefaultPage, Limit: DefaultLimit, Total: 0, TotalPages: 1}
	}
	out := *m
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	if out.Limit < 1 {
		out.Limit = DefaultLimit
	}
	if out.Total < 0 {
		out.Total = 0
	}
	out.TotalPages = (out.Total + out.Limit - 1) / out.Limit
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	out.HasNext = out.Page < out.TotalPages
	out.HasPrev = out.Page > 1
	return out
}
