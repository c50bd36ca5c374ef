package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError    ErrorType = "VALIDATION_ERROR"
	NotFoundError      ErrorType = "NOT_FOUND"
	ExtractionError    ErrorType = "EXTRACTION_ERROR"
	ConfigurationError ErrorType = "CONFIGURATION_ERROR"
	ConflictError      ErrorType = "CONFLICT"
	AuthError          ErrorType = "AUTHENTICATION_ERROR"
	ServerError        ErrorType = "SERVER_ERROR"
)

// AppError is the error type every layer above the repositories speaks.
// Message is safe to show to a client; Detail and Raw are for logs.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

// ExtractionFailed hides the model's raw output from the client; the cause
// stays in Raw for logging.
func ExtractionFailed(message string, err error) *AppError {
	appErr := &AppError{
		Type:       ExtractionError,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
	if err != nil {
		appErr.Detail = err.Error()
	}
	return appErr
}

func ConfigurationMissing(setting string) *AppError {
	return &AppError{
		Type:       ConfigurationError,
		Message:    "Service is not configured",
		Detail:     fmt.Sprintf("missing or invalid setting: %s", setting),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func Conflict(message string, details string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusConflict,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Internal(err error) *AppError {
	return Wrap(err, ServerError, "Internal server error")
}

// As reports whether err carries an AppError anywhere in its chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an AppError of the given type.
func Is(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == errType
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case ExtractionError:
		return http.StatusBadGateway
	case ConfigurationError:
		return http.StatusServiceUnavailable
	case ConflictError:
		return http.StatusConflict
	case AuthError:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
