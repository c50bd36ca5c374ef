package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"tudu/internal/repository"
	"tudu/pkg/apperrors"
)

// sanitizeUTF8 drops invalid UTF-8 sequences so model output can be
// stored in PostgreSQL text columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

// trimmed returns nil for nil or blank strings and the trimmed, sanitized
// value otherwise.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(sanitizeUTF8(*s))
	if v == "" {
		return nil
	}
	return &v
}

// storeError maps repository sentinels onto application errors.
func storeError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return apperrors.Internal(err)
}
