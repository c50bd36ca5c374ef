package repository

import (
	"context"
	"fmt"
	"strings"

	"tudu/internal/models"
	"tudu/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var checklistColumns = []string{"id", "todo_id", "title", "is_completed", "sort_order", "created_at"}

type ChecklistRepository struct {
	db     postgres.DB
	logger *zap.Logger
}

func NewChecklistRepository(db postgres.DB, logger *zap.Logger) *ChecklistRepository {
	return &ChecklistRepository{
		db:     db,
		logger: logger,
	}
}

// Create adds an item to an existing todo. A missing todo surfaces as
// ErrNotFound through the foreign key.
func (r *ChecklistRepository) Create(ctx context.Context, item *models.ChecklistItem) error {
	err := insertChecklistItems(ctx, r.db, []*models.ChecklistItem{item})
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *ChecklistRepository) Update(ctx context.Context, id uuid.UUID, patch models.ChecklistPatch) (*models.ChecklistItem, error) {
	query := squirrel.Update("todo_checklist_items").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(checklistColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	if patch.Title.Set {
		query = query.Set("title", patch.Title.Value)
	}
	if patch.IsCompleted.Set {
		query = query.Set("is_completed", *patch.IsCompleted.Value)
	}
	if patch.Order.Set {
		query = query.Set("sort_order", *patch.Order.Value)
	}

	return r.updateReturning(ctx, query)
}

func (r *ChecklistRepository) ToggleComplete(ctx context.Context, id uuid.UUID) (*models.ChecklistItem, error) {
	query := squirrel.Update("todo_checklist_items").
		Set("is_completed", squirrel.Expr("NOT is_completed")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(checklistColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	return r.updateReturning(ctx, query)
}

func (r *ChecklistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("todo_checklist_items").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete checklist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ChecklistRepository) ListByTodoIDs(ctx context.Context, todoIDs []uuid.UUID) ([]*models.ChecklistItem, error) {
	return listChecklistItems(ctx, r.db, todoIDs)
}

func (r *ChecklistRepository) updateReturning(ctx context.Context, query squirrel.UpdateBuilder) (*models.ChecklistItem, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	item, err := scanChecklistItem(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return item, nil
}

func insertChecklistItems(ctx context.Context, db postgres.DB, items []*models.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := squirrel.Insert("todo_checklist_items").
		Columns(checklistColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, item := range items {
		builder = builder.Values(item.ID, item.TodoID, item.Title, item.IsCompleted, item.Order, item.CreatedAt)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert checklist items: %w", err)
	}
	return nil
}

// listChecklistItems returns the items of all given todos ordered by
// position, ties broken by creation time.
func listChecklistItems(ctx context.Context, db postgres.DB, todoIDs []uuid.UUID) ([]*models.ChecklistItem, error) {
	if len(todoIDs) == 0 {
		return []*models.ChecklistItem{}, nil
	}

	sql, args, err := squirrel.Select(checklistColumns...).
		From("todo_checklist_items").
		Where(squirrel.Eq{"todo_id": todoIDs}).
		OrderBy("sort_order ASC", "created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.ChecklistItem, 0)
	for rows.Next() {
		item, err := scanChecklistItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanChecklistItem(row pgx.Row) (*models.ChecklistItem, error) {
	var item models.ChecklistItem
	if err := row.Scan(&item.ID, &item.TodoID, &item.Title, &item.IsCompleted, &item.Order, &item.CreatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}
