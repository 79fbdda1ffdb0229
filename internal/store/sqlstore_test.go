package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "workhub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, ApplyMigrations(ctx, db, dialect))
	return NewSQLStore(db, dialect)
}

func createItem(t *testing.T, s *SQLStore, owner int64, title string) WorkItem {
	t.Helper()
	item, err := s.CreateWorkItem(context.Background(), WorkItem{
		Type:      WorkItemTypeDiscussion,
		Title:     title,
		Summary:   title + " summary",
		Body:      title + " body",
		OwnerID:   owner,
		Status:    lifecycle.StatusCreated,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
	return item
}

func TestCreateAndGetWorkItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.Equal(t, DialectSQLite, s.Dialect())

	created := createItem(t, s, 1, "Kickoff")
	require.NotZero(t, created.ID)

	got, err := s.GetWorkItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", got.Title)
	assert.Equal(t, WorkItemTypeDiscussion, got.Type)
	assert.Equal(t, lifecycle.StatusCreated, got.Status)
	assert.Equal(t, int64(1), got.OwnerID)
	assert.True(t, got.CreatedAt.Equal(testNow), "created_at = %v", got.CreatedAt)
	assert.Nil(t, got.UpdatedAt)
	assert.Nil(t, got.ClosedAt)

	subjects, err := s.ListSubjects(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []authz.Subject{{Type: authz.EntityUser, ID: 1}}, subjects)
}

func TestUpdateWorkItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := createItem(t, s, 1, "Draft")

	updatedAt := testNow.Add(time.Hour)
	closedAt := testNow.Add(48 * time.Hour)
	item.Title = "Final"
	item.Status = lifecycle.StatusUpdated
	item.UpdatedAt = &updatedAt
	item.ClosedAt = &closedAt
	_, err := s.UpdateWorkItem(ctx, item)
	require.NoError(t, err)

	got, err := s.GetWorkItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, lifecycle.StatusUpdated, got.Status)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(updatedAt))
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(closedAt))

	item.ID = 999
	_, err = s.UpdateWorkItem(ctx, item)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveWorkItemTwice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := createItem(t, s, 1, "Temp")

	require.NoError(t, s.RemoveWorkItem(ctx, item.ID, testNow))

	_, err := s.GetWorkItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.RemoveWorkItem(ctx, item.ID, testNow), ErrNotFound)

	var status int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT status FROM work_items WHERE id = $1`, item.ID).Scan(&status))
	assert.Equal(t, int(lifecycle.StatusRemoved), status, "row must be kept as a tombstone")
}

func TestListWorkItemsInCreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		createItem(t, s, 1, "Discussion")
	}

	items, total, err := s.ListWorkItems(ctx, authz.Membership{UserID: 1}, WorkItemFilter{}, paging.Params{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 5)
	for i, item := range items {
		assert.Equal(t, int64(i+1), item.ID)
	}

	items, total, err = s.ListWorkItems(ctx, authz.Membership{UserID: 1}, WorkItemFilter{}, paging.Params{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)
}

func TestListWorkItemsVisibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := createItem(t, s, 1, "Private")
	second := createItem(t, s, 1, "Team")
	third := createItem(t, s, 1, "Company")

	_, err := s.CreateParticipant(ctx, Participant{WorkItemID: second.ID, EntityType: authz.EntityGroup, EntityID: 20, Status: lifecycle.StatusCreated, CreatedAt: testNow})
	require.NoError(t, err)
	_, err = s.CreateParticipant(ctx, Participant{WorkItemID: third.ID, EntityType: authz.EntityOrganization, EntityID: 300, Status: lifecycle.StatusCreated, CreatedAt: testNow})
	require.NoError(t, err)

	cases := []struct {
		name       string
		membership authz.Membership
		want       []int64
	}{
		{name: "owner", membership: authz.Membership{UserID: 1}, want: []int64{first.ID, second.ID, third.ID}},
		{name: "stranger", membership: authz.Membership{UserID: 2}, want: nil},
		{name: "group member", membership: authz.Membership{UserID: 2, GroupIDs: []int64{20}}, want: []int64{second.ID}},
		{name: "organization member", membership: authz.Membership{UserID: 2, OrganizationIDs: []int64{300}}, want: []int64{third.ID}},
		{name: "group id sent as organization", membership: authz.Membership{UserID: 2, OrganizationIDs: []int64{20}}, want: nil},
		{name: "empty membership", membership: authz.Membership{}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, total, err := s.ListWorkItems(ctx, tc.membership, WorkItemFilter{}, paging.Params{Number: 1, Size: 20})
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), total)
			var ids []int64
			for _, item := range items {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestListWorkItemsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createItem(t, s, 1, "Budget review")
	doc, err := s.CreateWorkItem(ctx, WorkItem{
		Type: WorkItemTypeDocument, Title: "Budget 100% plan", Summary: "s", Body: "b",
		OwnerID: 1, Status: lifecycle.StatusCreated, CreatedAt: testNow,
	})
	require.NoError(t, err)

	items, total, err := s.ListWorkItems(ctx, authz.Membership{UserID: 1}, WorkItemFilter{Type: WorkItemTypeDocument}, paging.Params{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, doc.ID, items[0].ID)

	_, total, err = s.ListWorkItems(ctx, authz.Membership{UserID: 1}, WorkItemFilter{Query: "BUDGET"}, paging.Params{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, total, err = s.ListWorkItems(ctx, authz.Membership{UserID: 1}, WorkItemFilter{Query: "100%"}, paging.Params{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, doc.ID, items[0].ID)
}

func TestGetWorkItemsByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mine := createItem(t, s, 1, "Mine")
	theirs := createItem(t, s, 2, "Theirs")

	found, err := s.GetWorkItemsByIDs(ctx, authz.Membership{UserID: 1}, []int64{mine.ID, theirs.ID, 77})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, mine.ID)

	found, err = s.GetWorkItemsByIDs(ctx, authz.Membership{UserID: 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestParticipantUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := createItem(t, s, 1, "Shared")

	p := Participant{WorkItemID: item.ID, EntityType: authz.EntityGroup, EntityID: 5, Status: lifecycle.StatusCreated, CreatedAt: testNow}
	added, err := s.CreateParticipant(ctx, p)
	require.NoError(t, err)

	_, err = s.CreateParticipant(ctx, p)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.RemoveParticipant(ctx, added.ID, testNow))
	_, err = s.GetParticipant(ctx, item.ID, added.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	readded, err := s.CreateParticipant(ctx, p)
	require.NoError(t, err, "a removed participant must not block re-adding the subject")
	assert.NotEqual(t, added.ID, readded.ID)

	participants, err := s.ListParticipants(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestParticipantRequiresExistingItem(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateParticipant(context.Background(), Participant{WorkItemID: 404, EntityType: authz.EntityUser, EntityID: 1, Status: lifecycle.StatusCreated, CreatedAt: testNow})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestCommentsPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := createItem(t, s, 1, "Thread")

	var ids []int64
	for _, text := range []string{"one", "two", "three"} {
		c, err := s.CreateComment(ctx, Comment{WorkItemID: item.ID, AuthorID: 1, Text: text, Status: lifecycle.StatusCreated, CreatedAt: testNow})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	require.NoError(t, s.RemoveComment(ctx, ids[0], testNow))

	comments, total, err := s.ListComments(ctx, item.ID, paging.Params{Number: 1, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, comments, 1)
	assert.Equal(t, "two", comments[0].Text)

	at := testNow.Add(time.Minute)
	comment := comments[0]
	comment.Text = "two (edited)"
	comment.Status = lifecycle.StatusUpdated
	comment.UpdatedAt = &at
	_, err = s.UpdateComment(ctx, comment)
	require.NoError(t, err)

	got, err := s.GetComment(ctx, item.ID, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "two (edited)", got.Text)
	assert.Equal(t, lifecycle.StatusUpdated, got.Status)

	_, err = s.GetComment(ctx, item.ID+1, comment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := createItem(t, s, 1, "Files")

	a, err := s.CreateAttachment(ctx, Attachment{
		WorkItemID: item.ID, ExternalID: "ext-1", Name: "plan.pdf", URL: "https://files.example/plan.pdf",
		OwnerID: 1, Status: lifecycle.StatusCreated, CreatedAt: testNow,
	})
	require.NoError(t, err)

	at := testNow.Add(time.Minute)
	a.Name = "plan-v2.pdf"
	a.Status = lifecycle.StatusUpdated
	a.UpdatedAt = &at
	_, err = s.UpdateAttachment(ctx, a)
	require.NoError(t, err)

	list, err := s.ListAttachments(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "plan-v2.pdf", list[0].Name)

	require.NoError(t, s.RemoveAttachment(ctx, a.ID, testNow))
	list, err = s.ListAttachments(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, s.RemoveAttachment(ctx, a.ID, testNow), ErrNotFound)
}

func TestRelations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createItem(t, s, 1, "A")
	b := createItem(t, s, 1, "B")

	rel := Relation{FromWorkItemID: a.ID, ToWorkItemID: b.ID, Type: RelationTypeBlocks, OwnerID: 1, Status: lifecycle.StatusCreated, CreatedAt: testNow}
	created, err := s.CreateRelation(ctx, rel)
	require.NoError(t, err)

	_, err = s.CreateRelation(ctx, rel)
	assert.ErrorIs(t, err, ErrConflict)

	other := rel
	other.Type = RelationTypeRelated
	_, err = s.CreateRelation(ctx, other)
	require.NoError(t, err)

	fromB, err := s.ListRelations(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, fromB, 2)

	got, err := s.GetRelation(ctx, b.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, RelationTypeBlocks, got.Type)

	require.NoError(t, s.RemoveRelation(ctx, created.ID, testNow))
	_, err = s.GetRelation(ctx, a.ID, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CreateRelation(ctx, rel)
	assert.NoError(t, err)
}

func TestMarkRemovedRejectsUnknownTable(t *testing.T) {
	s := newTestStore(t)
	err := s.markRemoved(context.Background(), "users", 1, testNow)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestParseDialect(t *testing.T) {
	cases := []struct {
		url     string
		dialect Dialect
		dsn     string
		wantErr bool
	}{
		{url: "postgres://u:p@localhost/db", dialect: DialectPostgres, dsn: "postgres://u:p@localhost/db"},
		{url: "postgresql://localhost/db", dialect: DialectPostgres, dsn: "postgresql://localhost/db"},
		{url: "sqlite://data/workhub.db", dialect: DialectSQLite, dsn: "data/workhub.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{url: "sqlite://", wantErr: true},
		{url: "mysql://localhost/db", wantErr: true},
	}
	for _, tc := range cases {
		dialect, dsn, err := ParseDialect(tc.url)
		if tc.wantErr {
			assert.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.dialect, dialect)
		assert.Equal(t, tc.dsn, dsn)
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	kept := createItem(t, s, 1, "Kept")
	gone := createItem(t, s, 2, "Gone")
	_, err := s.CreateParticipant(ctx, Participant{WorkItemID: kept.ID, EntityType: authz.EntityGroup, EntityID: 9, Status: lifecycle.StatusCreated, CreatedAt: testNow})
	require.NoError(t, err)
	require.NoError(t, s.RemoveWorkItem(ctx, gone.ID, testNow))

	items, subjects, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)
	assert.Equal(t, []authz.Subject{{Type: authz.EntityUser, ID: 1}, {Type: authz.EntityGroup, ID: 9}}, subjects[kept.ID])
}
