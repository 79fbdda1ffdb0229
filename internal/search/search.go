package search

import (
	"context"

	"workhub/api/internal/authz"
	"workhub/api/internal/paging"
)

// Result is a single search hit. Title and Snippet may carry <mark> highlights.
type Result struct {
	WorkItemID int64
	Type       string
	Title      string
	Snippet    string
}

// Query describes a search request. Membership limits hits to work items the caller
// participates in.
type Query struct {
	Text       string
	Type       string // empty = all types
	Membership authz.Membership
	Page       paging.Params
}

type Response struct {
	Results []Result
	Total   int
	Query   string
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
}

// Engine is an external index that can be searched and written to.
type Engine interface {
	Searcher
	Healthy() bool
	IndexWorkItems(records []Record) error
	DeleteWorkItem(id int64) error
}

// Record is the data indexed for a work item. Subjects holds the participant keys
// ("user:1", "group:4") used to filter hits by membership.
type Record struct {
	ID        int64    `json:"id"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Body      string   `json:"body"`
	OwnerID   int64    `json:"ownerId"`
	Subjects  []string `json:"subjects"`
	CreatedAt int64    `json:"createdAt"`
}
