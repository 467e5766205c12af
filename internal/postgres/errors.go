package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	ierr "github.com/rentwise/rentwise/internal/errors"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// TranslateError maps driver errors onto the sentinel marks callers match on
func TranslateError(err error, hint string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint(hint).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ierr.WithError(err).
				WithHint(hint).
				WithReportableDetails(map[string]any{
					"constraint": pqErr.Constraint,
				}).
				Mark(ierr.ErrAlreadyExists)
		case pqForeignKeyViolation:
			return ierr.WithError(err).
				WithHint(hint).
				WithReportableDetails(map[string]any{
					"constraint": pqErr.Constraint,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}
