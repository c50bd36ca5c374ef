package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"tudu/internal/models"
	"tudu/pkg/apperrors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report JSON names so messages match what the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	must("todo_priority", func(fl validator.FieldLevel) bool {
		return models.TodoPriority(fl.Field().String()).IsValid()
	})
	must("todo_category", func(fl validator.FieldLevel) bool {
		return models.TodoCategory(fl.Field().String()).IsValid()
	})
	must("expense_category", func(fl validator.FieldLevel) bool {
		return models.ExpenseCategory(fl.Field().String()).IsValid()
	})
	must("attachment_type", func(fl validator.FieldLevel) bool {
		return models.AttachmentType(fl.Field().String()).IsValid()
	})

	return v
}

// Validate runs the struct's validate tags and converts failures into a
// ValidationError whose message names the first offending field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.ValidationFailed("Invalid request", err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return apperrors.ValidationFailed(messages[0], strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s is too long (max %s characters)", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len", "alpha":
		return fmt.Sprintf("%s must be a 3-letter currency code", field)
	case "todo_priority":
		return fmt.Sprintf("%s must be one of %s", field, joinValues(models.TodoPriorities))
	case "todo_category":
		return fmt.Sprintf("%s must be one of %s", field, joinValues(models.TodoCategories))
	case "expense_category":
		return fmt.Sprintf("%s must be one of %s", field, joinValues(models.ExpenseCategories))
	case "attachment_type":
		return fmt.Sprintf("%s must be one of note, file", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
