package service

import (
	"context"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChecklistService manages the checklist items and attachments that hang
// off a todo.
type ChecklistService struct {
	items       ChecklistStore
	attachments AttachmentStore
	logger      *zap.Logger
	now         func() time.Time
}

func NewChecklistService(items ChecklistStore, attachments AttachmentStore, logger *zap.Logger) *ChecklistService {
	return &ChecklistService{
		items:       items,
		attachments: attachments,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ChecklistService) AddItem(ctx context.Context, todoID uuid.UUID, req *dto.CreateChecklistItemRequest) (*models.ChecklistItem, error) {
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	item := &models.ChecklistItem{
		ID:        uuid.New(),
		TodoID:    todoID,
		Title:     req.Title,
		CreatedAt: s.now(),
	}
	if req.Order != nil {
		item.Order = *req.Order
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, storeError(err, "Todo", todoID)
	}
	return item, nil
}

func (s *ChecklistService) UpdateItem(ctx context.Context, id uuid.UUID, req *dto.UpdateChecklistItemRequest) (*models.ChecklistItem, error) {
	patch, err := req.ToPatch()
	if err != nil {
		return nil, err
	}

	item, err := s.items.Update(ctx, id, patch)
	if err != nil {
		return nil, storeError(err, "Checklist item", id)
	}
	return item, nil
}

func (s *ChecklistService) ToggleItem(ctx context.Context, id uuid.UUID) (*models.ChecklistItem, error) {
	item, err := s.items.ToggleComplete(ctx, id)
	if err != nil {
		return nil, storeError(err, "Checklist item", id)
	}
	return item, nil
}

func (s *ChecklistService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return storeError(s.items.Delete(ctx, id), "Checklist item", id)
}

func (s *ChecklistService) AddAttachment(ctx context.Context, todoID uuid.UUID, req *dto.CreateAttachmentRequest) (*models.Attachment, error) {
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	att := &models.Attachment{
		ID:        uuid.New(),
		TodoID:    todoID,
		Type:      req.Type,
		Content:   req.Content,
		FileName:  req.FileName,
		CreatedAt: s.now(),
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, storeError(err, "Todo", todoID)
	}

	s.logger.Debug("Attachment added",
		zap.String("todo_id", todoID.String()),
		zap.String("type", string(att.Type)),
	)
	return att, nil
}

func (s *ChecklistService) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	return storeError(s.attachments.Delete(ctx, id), "Attachment", id)
}
