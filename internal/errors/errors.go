package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinels used with ErrorBuilder.Mark. Callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrValidation       = errors.New("validation error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrDatabase         = errors.New("database error")
	ErrSystem           = errors.New("system error")
	ErrRateLimited      = errors.New("rate limited")
	// ErrCompensation marks a failed cleanup of a partially written instance
	ErrCompensation = errors.New("compensation failed")
)

const (
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeDatabase         = "database_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeCompensation     = "compensation_failed"
	ErrCodeRateLimited      = "rate_limited"
)

type errorClass struct {
	sentinel error
	code     string
	status   int
}

// ordered so that the most specific mark wins when an error carries several
var classes = []errorClass{
	{ErrCompensation, ErrCodeCompensation, http.StatusInternalServerError},
	{ErrNotFound, ErrCodeNotFound, http.StatusNotFound},
	{ErrAlreadyExists, ErrCodeAlreadyExists, http.StatusConflict},
	{ErrValidation, ErrCodeValidation, http.StatusBadRequest},
	{ErrInvalidOperation, ErrCodeInvalidOperation, http.StatusBadRequest},
	{ErrDatabase, ErrCodeDatabase, http.StatusInternalServerError},
	{ErrRateLimited, ErrCodeRateLimited, http.StatusTooManyRequests},
	{ErrSystem, ErrCodeSystemError, http.StatusInternalServerError},
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsCompensation(err error) bool {
	return errors.Is(err, ErrCompensation)
}

// CodeFromErr returns the machine readable code of the first matching sentinel
func CodeFromErr(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return ErrCodeSystemError
}

func HTTPStatusFromErr(err error) int {
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}
