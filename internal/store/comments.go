package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
)

const commentColumns = `id, work_item_id, author_id, text, status, created_at, updated_at`

func scanComment(row rowScanner) (Comment, error) {
	var c Comment
	var updatedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.WorkItemID, &c.AuthorID, &c.Text, &c.Status, &c.CreatedAt, &updatedAt); err != nil {
		return Comment{}, err
	}
	c.UpdatedAt = nullTime(updatedAt)
	return c, nil
}

func (s *SQLStore) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (work_item_id, author_id, text, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.WorkItemID, c.AuthorID, c.Text, int(c.Status), c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *SQLStore) GetComment(ctx context.Context, workItemID, id int64) (Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1 AND work_item_id = $2 AND status <> $3`,
		id, workItemID, int(lifecycle.StatusRemoved))
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *SQLStore) UpdateComment(ctx context.Context, c Comment) (Comment, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET text = $1, status = $2, updated_at = $3 WHERE id = $4 AND status <> $5`,
		c.Text, int(c.Status), timeArg(c.UpdatedAt), c.ID, int(lifecycle.StatusRemoved))
	if err != nil {
		return Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *SQLStore) RemoveComment(ctx context.Context, id int64, at time.Time) error {
	return s.markRemoved(ctx, "comments", id, at)
}

func (s *SQLStore) ListComments(ctx context.Context, workItemID int64, p paging.Params) ([]Comment, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE work_item_id = $1 AND status <> $2`,
		workItemID, int(lifecycle.StatusRemoved)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}
	if total == 0 {
		return []Comment{}, 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE work_item_id = $1 AND status <> $2
		ORDER BY id ASC LIMIT $3 OFFSET $4
	`, workItemID, int(lifecycle.StatusRemoved), p.Size, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0, p.Size)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, total, nil
}
