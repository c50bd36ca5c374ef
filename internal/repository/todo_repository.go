package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tudu/internal/models"
	"tudu/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var todoColumns = []string{
	"id", "title", "description", "due_date", "priority", "category", "tags",
	"is_recurring", "recurrence_pattern", "is_completed", "completed_at", "created_at", "updated_at",
}

// priorityRankSQL sorts high, medium, low, then none.
const priorityRankSQL = "CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END"

// recentlyCompletedWindow is how long a completed todo stays in the
// default listing.
const recentlyCompletedWindow = 24 * time.Hour

type TodoRepository struct {
	db     postgres.DB
	logger *zap.Logger
}

func NewTodoRepository(db postgres.DB, logger *zap.Logger) *TodoRepository {
	return &TodoRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the todo and its initial checklist in one transaction.
func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo, items []*models.ChecklistItem) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		query := squirrel.Insert("todos").
			Columns(todoColumns...).
			Values(
				todo.ID, todo.Title, todo.Description, todo.DueDate, string(todo.Priority),
				categoryArg(todo.Category), tagsArg(todo.Tags), todo.IsRecurring, todo.RecurrencePattern,
				todo.IsCompleted, todo.CompletedAt, todo.CreatedAt, todo.UpdatedAt,
			).
			PlaceholderFormat(squirrel.Dollar)

		sql, args, err := query.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert todo: %w", err)
		}

		if err := insertChecklistItems(ctx, tx, items); err != nil {
			return err
		}
		todo.ChecklistItems = items
		return nil
	})
}

func (r *TodoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Todo, error) {
	query := squirrel.Select(todoColumns...).
		From("todos").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	todo, err := scanTodo(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}

	if err := r.loadRelations(ctx, []*models.Todo{todo}); err != nil {
		return nil, err
	}
	return todo, nil
}

// List returns todos ordered incomplete first, then by priority rank, then
// newest first. Unless the filter asks otherwise, todos completed more than
// a day before now are left out.
func (r *TodoRepository) List(ctx context.Context, filter models.TodoFilter, now time.Time) ([]*models.Todo, error) {
	query := squirrel.Select(todoColumns...).
		From("todos").
		OrderBy("is_completed ASC", priorityRankSQL+" ASC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if !filter.IncludeOldCompleted {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"is_completed": false},
			squirrel.GtOrEq{"completed_at": now.Add(-recentlyCompletedWindow)},
		})
	}
	if filter.Category != nil {
		query = query.Where(squirrel.Eq{"category": string(*filter.Category)})
	}
	if filter.Priority != nil {
		query = query.Where(squirrel.Eq{"priority": string(*filter.Priority)})
	}
	if filter.DateRange != nil {
		query = query.Where(squirrel.GtOrEq{"created_at": filter.DateRange.From}).
			Where(squirrel.LtOrEq{"created_at": filter.DateRange.To})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]*models.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadRelations(ctx, todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Update applies the fields present in patch. When IsCompleted is part of
// the patch, completed_at follows it: kept if the todo was already done,
// stamped with now on the transition to done, cleared otherwise.
func (r *TodoRepository) Update(ctx context.Context, id uuid.UUID, patch models.TodoPatch, now time.Time) (*models.Todo, error) {
	query := squirrel.Update("todos").
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	if patch.Title.Set {
		query = query.Set("title", patch.Title.Value)
	}
	if patch.Description.Set {
		query = query.Set("description", patch.Description.Value)
	}
	if patch.DueDate.Set {
		query = query.Set("due_date", patch.DueDate.Value)
	}
	if patch.Priority.Set {
		query = query.Set("priority", string(*patch.Priority.Value))
	}
	if patch.Category.Set {
		query = query.Set("category", categoryArg(patch.Category.Value))
	}
	if patch.Tags.Set {
		var tags []string
		if patch.Tags.Value != nil {
			tags = *patch.Tags.Value
		}
		query = query.Set("tags", tagsArg(tags))
	}
	if patch.IsRecurring.Set {
		query = query.Set("is_recurring", *patch.IsRecurring.Value)
	}
	if patch.RecurrencePattern.Set {
		query = query.Set("recurrence_pattern", patch.RecurrencePattern.Value)
	}
	if patch.IsCompleted.Set {
		if *patch.IsCompleted.Value {
			query = query.
				Set("completed_at", squirrel.Expr("CASE WHEN is_completed THEN completed_at ELSE ?::timestamptz END", now)).
				Set("is_completed", true)
		} else {
			query = query.
				Set("completed_at", nil).
				Set("is_completed", false)
		}
	}

	return r.updateReturning(ctx, query)
}

// ToggleComplete flips is_completed in a single statement so concurrent
// toggles cannot leave completed_at out of step.
func (r *TodoRepository) ToggleComplete(ctx context.Context, id uuid.UUID, now time.Time) (*models.Todo, error) {
	query := squirrel.Update("todos").
		Set("completed_at", squirrel.Expr("CASE WHEN is_completed THEN NULL ELSE ?::timestamptz END", now)).
		Set("is_completed", squirrel.Expr("NOT is_completed")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	return r.updateReturning(ctx, query)
}

// Delete removes the todo together with its checklist items and attachments.
func (r *TodoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, table := range []string{"todo_checklist_items", "todo_attachments"} {
			sql, args, err := squirrel.Delete(table).
				Where(squirrel.Eq{"todo_id": id}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}

		sql, args, err := squirrel.Delete("todos").
			Where(squirrel.Eq{"id": id}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *TodoRepository) updateReturning(ctx context.Context, query squirrel.UpdateBuilder) (*models.Todo, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	todo, err := scanTodo(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}

	if err := r.loadRelations(ctx, []*models.Todo{todo}); err != nil {
		return nil, err
	}
	return todo, nil
}

// loadRelations attaches checklist items and attachments using one query
// per relation for the whole batch.
func (r *TodoRepository) loadRelations(ctx context.Context, todos []*models.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(todos))
	byID := make(map[uuid.UUID]*models.Todo, len(todos))
	for i, todo := range todos {
		ids[i] = todo.ID
		byID[todo.ID] = todo
		todo.ChecklistItems = []*models.ChecklistItem{}
		todo.Attachments = []*models.Attachment{}
	}

	items, err := listChecklistItems(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		if todo, ok := byID[item.TodoID]; ok {
			todo.ChecklistItems = append(todo.ChecklistItems, item)
		}
	}

	attachments, err := listAttachments(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, att := range attachments {
		if todo, ok := byID[att.TodoID]; ok {
			todo.Attachments = append(todo.Attachments, att)
		}
	}
	return nil
}

func scanTodo(row pgx.Row) (*models.Todo, error) {
	var (
		todo     models.Todo
		priority string
		category *string
	)
	err := row.Scan(
		&todo.ID, &todo.Title, &todo.Description, &todo.DueDate, &priority, &category, &todo.Tags,
		&todo.IsRecurring, &todo.RecurrencePattern, &todo.IsCompleted, &todo.CompletedAt,
		&todo.CreatedAt, &todo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	todo.Priority = models.TodoPriority(priority)
	if category != nil {
		c := models.TodoCategory(*category)
		todo.Category = &c
	}
	if todo.Tags == nil {
		todo.Tags = []string{}
	}
	return &todo, nil
}

func categoryArg(c *models.TodoCategory) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func tagsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
