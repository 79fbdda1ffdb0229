package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
	"workhub/api/internal/store"
)

func newSQLiteStore(t *testing.T) *store.SQLStore {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := store.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.ApplyMigrations(ctx, db, dialect))
	return store.NewSQLStore(db, dialect)
}

func TestSQLSearcherAppliesVisibility(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, item := range []store.WorkItem{
		{Type: store.WorkItemTypeDiscussion, Title: "Release plan", Summary: "dates", Body: "b", OwnerID: 1},
		{Type: store.WorkItemTypeDocument, Title: "Release notes", Summary: "notes", Body: "b", OwnerID: 1},
		{Type: store.WorkItemTypeDocument, Title: "Release secrets", Summary: "private", Body: "b", OwnerID: 2},
	} {
		item.Status = lifecycle.StatusCreated
		item.CreatedAt = now
		_, err := s.CreateWorkItem(ctx, item)
		require.NoError(t, err)
	}

	searcher := NewSQLSearcher(s)
	results, total, err := searcher.Search(ctx, Query{
		Text:       "release",
		Membership: authz.Membership{UserID: 1},
		Page:       paging.Params{Number: 1, Size: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	assert.Equal(t, "Release plan", results[0].Title)
	assert.Equal(t, "dates", results[0].Snippet)

	results, total, err = searcher.Search(ctx, Query{
		Text:       "release",
		Type:       "Document",
		Membership: authz.Membership{UserID: 1},
		Page:       paging.Params{Number: 1, Size: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Document", results[0].Type)

	results, total, err = searcher.Search(ctx, Query{Text: "release", Type: "Nonsense", Membership: authz.Membership{UserID: 1}, Page: paging.Params{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, results)
}

func TestRecordFor(t *testing.T) {
	item := store.WorkItem{ID: 3, Type: store.WorkItemTypeEvent, Title: "Offsite", OwnerID: 1, CreatedAt: time.Unix(100, 0)}
	record := RecordFor(item, []authz.Subject{{Type: authz.EntityUser, ID: 1}, {Type: authz.EntityOrganization, ID: 8}})
	assert.Equal(t, []string{"user:1", "organization:8"}, record.Subjects)
	assert.Equal(t, "Event", record.Type)
	assert.Equal(t, int64(100), record.CreatedAt)
}
