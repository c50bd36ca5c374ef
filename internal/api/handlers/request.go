package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(dto.OK(data))
}

// decodeJSON reads the request body into v. Unknown keys and trailing data
// are rejected.
func decodeJSON(c *fiber.Ctx, v any) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return apperrors.ValidationFailed("Request body is required", "")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return bodyError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperrors.ValidationFailed("Request body must contain a single JSON object", "")
	}
	return nil
}

func bodyError(err error) error {
	var typeErr *json.UnmarshalTypeError
	switch {
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return apperrors.ValidationFailed("Unknown field "+field, "")
	case errors.As(err, &typeErr):
		return apperrors.ValidationFailed(
			fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type), "")
	default:
		return apperrors.ValidationFailed("Invalid JSON body", err.Error())
	}
}

func pathID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.ValidationFailed("Invalid "+name, c.Params(name))
	}
	return id, nil
}

// parseDateRange reads the from/to query parameters. Both or neither must
// be given. A bare date covers the whole day in loc.
func parseDateRange(c *fiber.Ctx, loc *time.Location) (*models.DateRange, error) {
	fromRaw, toRaw := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if fromRaw == "" && toRaw == "" {
		return nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, apperrors.ValidationFailed("Both from and to are required for a date range", "")
	}

	from, err := parseBound(fromRaw, loc, false)
	if err != nil {
		return nil, apperrors.ValidationFailed("Invalid from date, use YYYY-MM-DD or RFC 3339", fromRaw)
	}
	to, err := parseBound(toRaw, loc, true)
	if err != nil {
		return nil, apperrors.ValidationFailed("Invalid to date, use YYYY-MM-DD or RFC 3339", toRaw)
	}
	if from.After(to) {
		return nil, apperrors.ValidationFailed("from must not be after to", "")
	}
	return &models.DateRange{From: from, To: to}, nil
}

func parseBound(value string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if len(value) == len(dateLayout) {
		day, err := time.ParseInLocation(dateLayout, value, loc)
		if err != nil {
			return time.Time{}, err
		}
		if endOfDay {
			return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return day, nil
	}
	return time.Parse(time.RFC3339, value)
}

func parseTodoFilter(c *fiber.Ctx, loc *time.Location) (models.TodoFilter, error) {
	var filter models.TodoFilter

	if raw := c.Query("includeOldCompleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.ValidationFailed("includeOldCompleted must be true or false", raw)
		}
		filter.IncludeOldCompleted = v
	}

	if raw := c.Query("category"); raw != "" {
		category := models.TodoCategory(strings.ToLower(raw))
		if !category.IsValid() {
			return filter, apperrors.ValidationFailed("Unknown category", raw)
		}
		filter.Category = &category
	}

	if raw := c.Query("priority"); raw != "" {
		priority := models.TodoPriority(strings.ToLower(raw))
		if !priority.IsValid() {
			return filter, apperrors.ValidationFailed("Unknown priority", raw)
		}
		filter.Priority = &priority
	}

	dateRange, err := parseDateRange(c, loc)
	if err != nil {
		return filter, err
	}
	filter.DateRange = dateRange
	return filter, nil
}
