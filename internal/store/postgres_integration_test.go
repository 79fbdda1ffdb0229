package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
)

func TestSQLStorePostgresVisibilityAndConflicts(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("WORKHUB_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("WORKHUB_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, dialect, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, DialectPostgres, dialect)

	_, err = db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)
	require.NoError(t, ApplyMigrations(ctx, db, dialect))

	s := NewSQLStore(db, dialect)
	item, err := s.CreateWorkItem(ctx, WorkItem{
		Type: WorkItemTypeEvent, Title: "Offsite", Summary: "s", Body: "b",
		OwnerID: 1, Status: lifecycle.StatusCreated, CreatedAt: testNow,
	})
	require.NoError(t, err)

	_, err = s.CreateParticipant(ctx, Participant{WorkItemID: item.ID, EntityType: authz.EntityUser, EntityID: 1, Status: lifecycle.StatusCreated, CreatedAt: testNow})
	assert.ErrorIs(t, err, ErrConflict, "owner participant already exists")

	items, total, err := s.ListWorkItems(ctx, authz.Membership{UserID: 1}, WorkItemFilter{Query: "offsite"}, paging.Params{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, item.ID, items[0].ID)

	_, total, err = s.ListWorkItems(ctx, authz.Membership{UserID: 2}, WorkItemFilter{}, paging.Params{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}
