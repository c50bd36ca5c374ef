package handlers

import (
	"time"

	"tudu/internal/dto"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TodoHandler struct {
	todos  TodoService
	loc    *time.Location
	logger *zap.Logger
}

func NewTodoHandler(todos TodoService, loc *time.Location, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		todos:  todos,
		loc:    loc,
		logger: logger,
	}
}

// ListTodos godoc
// @Summary List todos
// @Description Todos completed more than a day ago are hidden unless includeOldCompleted is set
// @Tags todos
// @Produce json
// @Param includeOldCompleted query bool false "Include todos completed more than 24h ago"
// @Param category query string false "Category filter"
// @Param priority query string false "Priority filter"
// @Param from query string false "Created at or after (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "Created at or before (YYYY-MM-DD or RFC 3339)"
// @Security Bearer
// @Success 200 {object} dto.Response{data=[]dto.TodoResponse}
// @Failure 400 {object} dto.Response
// @Router /todos [get]
func (h *TodoHandler) ListTodos(c *fiber.Ctx) error {
	filter, err := parseTodoFilter(c, h.loc)
	if err != nil {
		return err
	}

	todos, err := h.todos.ListTodos(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTodoListResponse(todos))
}

// GetTodo godoc
// @Summary Get a todo with its checklist and attachments
// @Tags todos
// @Produce json
// @Param id path string true "Todo ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.TodoResponse}
// @Failure 404 {object} dto.Response
// @Router /todos/{id} [get]
func (h *TodoHandler) GetTodo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	todo, err := h.todos.GetTodo(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTodoResponse(todo))
}

// CreateTodo godoc
// @Summary Create a todo
// @Tags todos
// @Accept json
// @Produce json
// @Param todo body dto.CreateTodoRequest true "Todo"
// @Security Bearer
// @Success 201 {object} dto.Response{data=dto.TodoResponse}
// @Failure 400 {object} dto.Response
// @Router /todos [post]
func (h *TodoHandler) CreateTodo(c *fiber.Ctx) error {
	var req dto.CreateTodoRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	todo, err := h.todos.CreateTodo(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTodoResponse(todo))
}

// UpdateTodo godoc
// @Summary Update a todo
// @Description Only the keys present are changed; null clears optional fields
// @Tags todos
// @Accept json
// @Produce json
// @Param id path string true "Todo ID"
// @Param todo body dto.UpdateTodoRequest true "Fields to change"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.TodoResponse}
// @Failure 400 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /todos/{id} [patch]
func (h *TodoHandler) UpdateTodo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateTodoRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	todo, err := h.todos.UpdateTodo(c.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTodoResponse(todo))
}

// ToggleTodo godoc
// @Summary Flip a todo's completion state
// @Tags todos
// @Produce json
// @Param id path string true "Todo ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.TodoResponse}
// @Failure 404 {object} dto.Response
// @Router /todos/{id}/toggle [post]
func (h *TodoHandler) ToggleTodo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	todo, err := h.todos.ToggleTodo(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTodoResponse(todo))
}

// DeleteTodo godoc
// @Summary Delete a todo with its checklist and attachments
// @Tags todos
// @Produce json
// @Param id path string true "Todo ID"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.DeletedResponse}
// @Failure 404 {object} dto.Response
// @Router /todos/{id} [delete]
func (h *TodoHandler) DeleteTodo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.todos.DeleteTodo(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.DeletedResponse{ID: id.String()})
}

// ParseTodo godoc
// @Summary Turn free text into todo fields
// @Description Nothing is stored; the result is meant for review before createTodo
// @Tags todos
// @Accept json
// @Produce json
// @Param input body dto.ParseTodoRequest true "Free text"
// @Security Bearer
// @Success 200 {object} dto.Response{data=dto.TodoParsed}
// @Failure 400 {object} dto.Response
// @Failure 502 {object} dto.Response
// @Router /todos/parse [post]
func (h *TodoHandler) ParseTodo(c *fiber.Ctx) error {
	var req dto.ParseTodoRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	parsed, err := h.todos.ParseTodo(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, parsed)
}
