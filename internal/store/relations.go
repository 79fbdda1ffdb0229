package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workhub/api/internal/lifecycle"
)

const relationColumns = `id, from_work_item_id, to_work_item_id, type, owner_id, status, created_at, updated_at`

func scanRelation(row rowScanner) (Relation, error) {
	var r Relation
	var updatedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.FromWorkItemID, &r.ToWorkItemID, &r.Type, &r.OwnerID, &r.Status, &r.CreatedAt, &updatedAt); err != nil {
		return Relation{}, err
	}
	r.UpdatedAt = nullTime(updatedAt)
	return r, nil
}

// CreateRelation fails with ErrConflict when an active relation with the same
// (from, to, type) already exists.
func (s *SQLStore) CreateRelation(ctx context.Context, r Relation) (Relation, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO relations (from_work_item_id, to_work_item_id, type, owner_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.FromWorkItemID, r.ToWorkItemID, int(r.Type), r.OwnerID, int(r.Status), r.CreatedAt).Scan(&r.ID)
	if isUniqueViolation(err) {
		return Relation{}, ErrConflict
	}
	if err != nil {
		return Relation{}, fmt.Errorf("insert relation: %w", err)
	}
	return r, nil
}

// GetRelation finds an active relation that has workItemID on either end.
func (s *SQLStore) GetRelation(ctx context.Context, workItemID, id int64) (Relation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+relationColumns+` FROM relations
		WHERE id = $1 AND (from_work_item_id = $2 OR to_work_item_id = $2) AND status <> $3
	`, id, workItemID, int(lifecycle.StatusRemoved))
	r, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Relation{}, ErrNotFound
	}
	if err != nil {
		return Relation{}, fmt.Errorf("get relation: %w", err)
	}
	return r, nil
}

// ListRelations returns relations in both directions.
func (s *SQLStore) ListRelations(ctx context.Context, workItemID int64) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+relationColumns+` FROM relations
		WHERE (from_work_item_id = $1 OR to_work_item_id = $1) AND status <> $2
		ORDER BY id ASC
	`, workItemID, int(lifecycle.StatusRemoved))
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	relations := []Relation{}
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		relations = append(relations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}

func (s *SQLStore) RemoveRelation(ctx context.Context, id int64, at time.Time) error {
	return s.markRemoved(ctx, "relations", id, at)
}
