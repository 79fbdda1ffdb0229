package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SQLStore persists work items and their children. Every read skips rows whose status
// is Removed, so a removed row behaves exactly like a missing one.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const workItemColumns = `w.id, w.type, w.title, w.summary, w.body, w.owner_id, w.status, w.created_at, w.updated_at, w.closed_at`

func scanWorkItem(row rowScanner) (WorkItem, error) {
	var item WorkItem
	var updatedAt, closedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Type, &item.Title, &item.Summary, &item.Body, &item.OwnerID,
		&item.Status, &item.CreatedAt, &updatedAt, &closedAt); err != nil {
		return WorkItem{}, err
	}
	item.UpdatedAt = nullTime(updatedAt)
	item.ClosedAt = nullTime(closedAt)
	return item, nil
}

// CreateWorkItem inserts the item and its owner participant in one transaction.
func (s *SQLStore) CreateWorkItem(ctx context.Context, item WorkItem) (WorkItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WorkItem{}, fmt.Errorf("begin create work item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO work_items (type, title, summary, body, owner_id, status, created_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, int(item.Type), item.Title, item.Summary, item.Body, item.OwnerID, int(item.Status), item.CreatedAt, timeArg(item.ClosedAt)).Scan(&item.ID)
	if err != nil {
		return WorkItem{}, fmt.Errorf("insert work item: %w", err)
	}

	owner := Participant{
		WorkItemID: item.ID,
		EntityType: authz.EntityUser,
		EntityID:   item.OwnerID,
		Status:     item.Status,
		CreatedAt:  item.CreatedAt,
	}
	if _, err := insertParticipant(ctx, tx, owner); err != nil {
		return WorkItem{}, err
	}

	if err := tx.Commit(); err != nil {
		return WorkItem{}, fmt.Errorf("commit create work item: %w", err)
	}
	return item, nil
}

func (s *SQLStore) GetWorkItem(ctx context.Context, id int64) (WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workItemColumns+` FROM work_items w WHERE w.id = $1 AND w.status <> $2`,
		id, int(lifecycle.StatusRemoved))
	item, err := scanWorkItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkItem{}, ErrNotFound
	}
	if err != nil {
		return WorkItem{}, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// UpdateWorkItem writes the mutable columns. Type and owner are never updated.
func (s *SQLStore) UpdateWorkItem(ctx context.Context, item WorkItem) (WorkItem, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_items
		SET title = $1, summary = $2, body = $3, closed_at = $4, status = $5, updated_at = $6
		WHERE id = $7 AND status <> $8
	`, item.Title, item.Summary, item.Body, timeArg(item.ClosedAt), int(item.Status), timeArg(item.UpdatedAt),
		item.ID, int(lifecycle.StatusRemoved))
	if err != nil {
		return WorkItem{}, fmt.Errorf("update work item: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return WorkItem{}, err
	}
	return item, nil
}

func (s *SQLStore) RemoveWorkItem(ctx context.Context, id int64, at time.Time) error {
	return s.markRemoved(ctx, "work_items", id, at)
}

// ListWorkItems returns the page of items visible to m, ordered by id, and the total
// number of matching rows.
func (s *SQLStore) ListWorkItems(ctx context.Context, m authz.Membership, filter WorkItemFilter, p paging.Params) ([]WorkItem, int, error) {
	args := &argList{}
	where := []string{
		"w.status <> " + args.add(int(lifecycle.StatusRemoved)),
		visibleClause("w", m, args),
	}
	if filter.Type != WorkItemTypeDefault {
		where = append(where, "w.type = "+args.add(int(filter.Type)))
	}
	if query := strings.ToLower(strings.TrimSpace(filter.Query)); query != "" {
		pattern := args.add("%" + escapeLike(query) + "%")
		where = append(where, fmt.Sprintf(
			`(LOWER(w.title) LIKE %[1]s ESCAPE '\' OR LOWER(w.summary) LIKE %[1]s ESCAPE '\' OR LOWER(w.body) LIKE %[1]s ESCAPE '\')`, pattern))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items w WHERE `+whereSQL, args.values...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count work items: %w", err)
	}
	if total == 0 {
		return []WorkItem{}, 0, nil
	}

	limit := args.add(p.Size)
	offset := args.add(p.Offset())
	rows, err := s.db.QueryContext(ctx, `SELECT `+workItemColumns+` FROM work_items w WHERE `+whereSQL+
		` ORDER BY w.id ASC LIMIT `+limit+` OFFSET `+offset, args.values...)
	if err != nil {
		return nil, 0, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	items := make([]WorkItem, 0, p.Size)
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate work items: %w", err)
	}
	return items, total, nil
}

// GetWorkItemsByIDs returns the active items among ids that m may see, keyed by id.
func (s *SQLStore) GetWorkItemsByIDs(ctx context.Context, m authz.Membership, ids []int64) (map[int64]WorkItem, error) {
	out := make(map[int64]WorkItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := &argList{}
	query := `SELECT ` + workItemColumns + ` FROM work_items w WHERE w.id IN (` + args.addIDs(ids) + `)` +
		` AND w.status <> ` + args.add(int(lifecycle.StatusRemoved)) +
		` AND ` + visibleClause("w", m, args)
	rows, err := s.db.QueryContext(ctx, query, args.values...)
	if err != nil {
		return nil, fmt.Errorf("get work items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		out[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work items: %w", err)
	}
	return out, nil
}

var removableTables = map[string]bool{
	"work_items":   true,
	"participants": true,
	"comments":     true,
	"attachments":  true,
	"relations":    true,
}

// markRemoved is the single soft delete used for every table.
func (s *SQLStore) markRemoved(ctx context.Context, table string, id int64, at time.Time) error {
	if !removableTables[table] {
		return fmt.Errorf("remove from %s: unknown table", table)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $1`,
		int(lifecycle.StatusRemoved), at, id)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", table, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func timeArg(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
