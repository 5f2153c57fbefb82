package store

import (
	"time"

	"memoria/api/internal/listquery"
)

// Editor is an admin account allowed to author content.
type Editor struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListFilter narrows a content listing. Zero values mean "no constraint";
// Featured uses a pointer so false is a real filter.
type ListFilter struct {
	Query      string
	Status     string
	Tag        string
	PersonSlug string
	FundKey    string
	Slug       string
	Featured   *bool
	Sort       listquery.Sort
	HasSort    bool
	Page       int
	Limit      int
}
