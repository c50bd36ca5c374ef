package repository

import (
	"context"
	"fmt"

	"tudu/internal/models"
	"tudu/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var attachmentColumns = []string{"id", "todo_id", "type", "content", "file_name", "created_at"}

type AttachmentRepository struct {
	db     postgres.DB
	logger *zap.Logger
}

func NewAttachmentRepository(db postgres.DB, logger *zap.Logger) *AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	sql, args, err := squirrel.Insert("todo_attachments").
		Columns(attachmentColumns...).
		Values(att.ID, att.TodoID, string(att.Type), att.Content, att.FileName, att.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("todo_attachments").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttachmentRepository) ListByTodoIDs(ctx context.Context, todoIDs []uuid.UUID) ([]*models.Attachment, error) {
	return listAttachments(ctx, r.db, todoIDs)
}

func listAttachments(ctx context.Context, db postgres.DB, todoIDs []uuid.UUID) ([]*models.Attachment, error) {
	if len(todoIDs) == 0 {
		return []*models.Attachment{}, nil
	}

	sql, args, err := squirrel.Select(attachmentColumns...).
		From("todo_attachments").
		Where(squirrel.Eq{"todo_id": todoIDs}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]*models.Attachment, 0)
	for rows.Next() {
		var (
			att     models.Attachment
			attType string
		)
		if err := rows.Scan(&att.ID, &att.TodoID, &attType, &att.Content, &att.FileName, &att.CreatedAt); err != nil {
			return nil, err
		}
		att.Type = models.AttachmentType(attType)
		attachments = append(attachments, &att)
	}
	return attachments, rows.Err()
}
