package service

import (
	"context"
	"time"
	"unicode/utf8"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/pkg/apperrors"
	"tudu/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxParseInputLength = 5000

type TodoService struct {
	todos   TodoStore
	parser  TodoParser
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewTodoService(todos TodoStore, parser TodoParser, m *metrics.Metrics, logger *zap.Logger) *TodoService {
	return &TodoService{
		todos:   todos,
		parser:  parser,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *TodoService) ListTodos(ctx context.Context, filter models.TodoFilter) ([]*models.Todo, error) {
	todos, err := s.todos.List(ctx, filter, s.now())
	if err != nil {
		s.logger.Error("Failed to list todos", zap.Error(err))
		return nil, apperrors.Internal(err)
	}
	return todos, nil
}

func (s *TodoService) GetTodo(ctx context.Context, id uuid.UUID) (*models.Todo, error) {
	todo, err := s.todos.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Todo", id)
	}
	return todo, nil
}

// CreateTodo validates the request and stores the todo with its initial
// checklist. Items without an explicit order take their list position.
func (s *TodoService) CreateTodo(ctx context.Context, req *dto.CreateTodoRequest) (*models.Todo, error) {
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	todo := &models.Todo{
		ID:                uuid.New(),
		Title:             req.Title,
		Description:       req.Description,
		DueDate:           req.DueDate,
		Priority:          models.PriorityNone,
		Category:          req.Category,
		Tags:              req.Tags,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Priority != nil {
		todo.Priority = *req.Priority
	}
	if todo.Tags == nil {
		todo.Tags = []string{}
	}

	items := make([]*models.ChecklistItem, 0, len(req.ChecklistItems))
	for i, in := range req.ChecklistItems {
		order := i
		if in.Order != nil {
			order = *in.Order
		}
		items = append(items, &models.ChecklistItem{
			ID:        uuid.New(),
			TodoID:    todo.ID,
			Title:     in.Title,
			Order:     order,
			CreatedAt: now,
		})
	}

	if err := s.todos.Create(ctx, todo, items); err != nil {
		s.logger.Error("Failed to create todo", zap.Error(err))
		return nil, apperrors.Internal(err)
	}
	todo.Attachments = []*models.Attachment{}

	s.logger.Info("Todo created",
		zap.String("todo_id", todo.ID.String()),
		zap.Int("checklist_items", len(items)),
	)
	return todo, nil
}

func (s *TodoService) UpdateTodo(ctx context.Context, id uuid.UUID, req *dto.UpdateTodoRequest) (*models.Todo, error) {
	patch, err := req.ToPatch()
	if err != nil {
		return nil, err
	}

	todo, err := s.todos.Update(ctx, id, patch, s.now())
	if err != nil {
		return nil, storeError(err, "Todo", id)
	}
	return todo, nil
}

func (s *TodoService) ToggleTodo(ctx context.Context, id uuid.UUID) (*models.Todo, error) {
	todo, err := s.todos.ToggleComplete(ctx, id, s.now())
	if err != nil {
		return nil, storeError(err, "Todo", id)
	}
	return todo, nil
}

func (s *TodoService) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	if err := s.todos.Delete(ctx, id); err != nil {
		return storeError(err, "Todo", id)
	}
	s.logger.Info("Todo deleted", zap.String("todo_id", id.String()))
	return nil
}

// ParseTodo checks the free-text input and hands it to the parser. The
// result is returned for review, nothing is stored.
func (s *TodoService) ParseTodo(ctx context.Context, req *dto.ParseTodoRequest) (*dto.TodoParsed, error) {
	if req == nil || req.Text == nil {
		return nil, apperrors.ValidationFailed("Text input is required", "")
	}
	text := *req.Text
	if utf8.RuneCountInString(text) > MaxParseInputLength {
		return nil, apperrors.ValidationFailed("Text input is too long (max 5000 characters)", "")
	}
	text = sanitizeUTF8(text)
	if trimmed(&text) == nil {
		return nil, apperrors.ValidationFailed("Text input cannot be empty", "")
	}

	started := time.Now()
	parsed, err := s.parser.ParseTodo(ctx, *trimmed(&text))
	s.metrics.ObserveExtraction(metrics.KindTodo, started, err)
	if err != nil {
		s.logger.Warn("Todo parsing failed", zap.Error(err))
		if apperrors.Is(err, apperrors.ExtractionError) {
			return nil, err
		}
		return nil, apperrors.ExtractionFailed("Failed to parse todo. Please try again.", err)
	}
	return parsed, nil
}
