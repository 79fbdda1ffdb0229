package search

import (
	"context"
	"fmt"

	"workhub/api/internal/authz"
	"workhub/api/internal/paging"
	"workhub/api/internal/store"
)

type workItemLister interface {
	ListWorkItems(ctx context.Context, m authz.Membership, filter store.WorkItemFilter, p paging.Params) ([]store.WorkItem, int, error)
}

// SQLSearcher matches the query text against title, summary and body with LIKE and
// applies the same participant visibility as list endpoints.
type SQLSearcher struct {
	store workItemLister
}

func NewSQLSearcher(s workItemLister) *SQLSearcher {
	return &SQLSearcher{store: s}
}

func (s *SQLSearcher) Search(ctx context.Context, q Query) ([]Result, int, error) {
	filter := store.WorkItemFilter{Query: q.Text}
	if q.Type != "" {
		t, ok := store.ParseWorkItemType(q.Type)
		if !ok {
			return []Result{}, 0, nil
		}
		filter.Type = t
	}

	items, total, err := s.store.ListWorkItems(ctx, q.Membership, filter, q.Page)
	if err != nil {
		return nil, 0, fmt.Errorf("sql search: %w", err)
	}

	results := make([]Result, len(items))
	for i, item := range items {
		results[i] = Result{
			WorkItemID: item.ID,
			Type:       item.Type.String(),
			Title:      item.Title,
			Snippet:    item.Summary,
		}
	}
	return results, total, nil
}

// RecordFor builds the index record of a work item from its active participants.
func RecordFor(item store.WorkItem, subjects []authz.Subject) Record {
	keys := make([]string, len(subjects))
	for i, subject := range subjects {
		keys[i] = subject.Key()
	}
	return Record{
		ID:        item.ID,
		Type:      item.Type.String(),
		Title:     item.Title,
		Summary:   item.Summary,
		Body:      item.Body,
		OwnerID:   item.OwnerID,
		Subjects:  keys,
		CreatedAt: item.CreatedAt.Unix(),
	}
}
