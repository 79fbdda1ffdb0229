package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
)

const participantColumns = `id, work_item_id, entity_type, entity_id, status, created_at, updated_at`

func scanParticipant(row rowScanner) (Participant, error) {
	var p Participant
	var updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.WorkItemID, &p.EntityType, &p.EntityID, &p.Status, &p.CreatedAt, &updatedAt); err != nil {
		return Participant{}, err
	}
	p.UpdatedAt = nullTime(updatedAt)
	return p, nil
}

func insertParticipant(ctx context.Context, q querier, p Participant) (Participant, error) {
	err := q.QueryRowContext(ctx, `
		INSERT INTO participants (work_item_id, entity_type, entity_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.WorkItemID, int(p.EntityType), p.EntityID, int(p.Status), p.CreatedAt).Scan(&p.ID)
	if isUniqueViolation(err) {
		return Participant{}, ErrConflict
	}
	if err != nil {
		return Participant{}, fmt.Errorf("insert participant: %w", err)
	}
	return p, nil
}

// CreateParticipant fails with ErrConflict when the same subject is already an active
// participant of the item.
func (s *SQLStore) CreateParticipant(ctx context.Context, p Participant) (Participant, error) {
	return insertParticipant(ctx, s.db, p)
}

func (s *SQLStore) GetParticipant(ctx context.Context, workItemID, id int64) (Participant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1 AND work_item_id = $2 AND status <> $3`,
		id, workItemID, int(lifecycle.StatusRemoved))
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, ErrNotFound
	}
	if err != nil {
		return Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListParticipants(ctx context.Context, workItemID int64) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE work_item_id = $1 AND status <> $2 ORDER BY id ASC`,
		workItemID, int(lifecycle.StatusRemoved))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := []Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// ListSubjects returns the active participant subjects of an item, the input of
// authz.IsVisibleParticipant.
func (s *SQLStore) ListSubjects(ctx context.Context, workItemID int64) ([]authz.Subject, error) {
	participants, err := s.ListParticipants(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	subjects := make([]authz.Subject, len(participants))
	for i, p := range participants {
		subjects[i] = p.Subject()
	}
	return subjects, nil
}

func (s *SQLStore) RemoveParticipant(ctx context.Context, id int64, at time.Time) error {
	return s.markRemoved(ctx, "participants", id, at)
}

// Snapshot returns every active work item with its active participant subjects, used
// to rebuild the search index.
func (s *SQLStore) Snapshot(ctx context.Context) ([]WorkItem, map[int64][]authz.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+workItemColumns+` FROM work_items w WHERE w.status <> $1 ORDER BY w.id ASC`,
		int(lifecycle.StatusRemoved))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot work items: %w", err)
	}
	items := []WorkItem{}
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate work items: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE status <> $1 ORDER BY id ASC`,
		int(lifecycle.StatusRemoved))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot participants: %w", err)
	}
	defer rows.Close()

	subjects := make(map[int64][]authz.Subject, len(items))
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan participant: %w", err)
		}
		subjects[p.WorkItemID] = append(subjects[p.WorkItemID], p.Subject())
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate participants: %w", err)
	}
	return items, subjects, nil
}
