package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workhub/api/internal/lifecycle"
)

const attachmentColumns = `id, work_item_id, external_id, name, url, owner_id, status, created_at, updated_at`

func scanAttachment(row rowScanner) (Attachment, error) {
	var a Attachment
	var updatedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.WorkItemID, &a.ExternalID, &a.Name, &a.URL, &a.OwnerID, &a.Status, &a.CreatedAt, &updatedAt); err != nil {
		return Attachment{}, err
	}
	a.UpdatedAt = nullTime(updatedAt)
	return a, nil
}

func (s *SQLStore) CreateAttachment(ctx context.Context, a Attachment) (Attachment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attachments (work_item_id, external_id, name, url, owner_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.WorkItemID, a.ExternalID, a.Name, a.URL, a.OwnerID, int(a.Status), a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return a, nil
}

func (s *SQLStore) GetAttachment(ctx context.Context, workItemID, id int64) (Attachment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = $1 AND work_item_id = $2 AND status <> $3`,
		id, workItemID, int(lifecycle.StatusRemoved))
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attachment{}, ErrNotFound
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (s *SQLStore) UpdateAttachment(ctx context.Context, a Attachment) (Attachment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attachments SET external_id = $1, name = $2, url = $3, status = $4, updated_at = $5
		WHERE id = $6 AND status <> $7
	`, a.ExternalID, a.Name, a.URL, int(a.Status), timeArg(a.UpdatedAt), a.ID, int(lifecycle.StatusRemoved))
	if err != nil {
		return Attachment{}, fmt.Errorf("update attachment: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return Attachment{}, err
	}
	return a, nil
}

func (s *SQLStore) RemoveAttachment(ctx context.Context, id int64, at time.Time) error {
	return s.markRemoved(ctx, "attachments", id, at)
}

func (s *SQLStore) ListAttachments(ctx context.Context, workItemID int64) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE work_item_id = $1 AND status <> $2 ORDER BY id ASC`,
		workItemID, int(lifecycle.StatusRemoved))
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}
