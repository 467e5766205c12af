package validator

import (
	"github.com/go-playground/validator/v10"
	ierr "github.com/rentwise/rentwise/internal/errors"
)

var validate = validator.New()

func NewValidator() *validator.Validate {
	return validate
}

func GetValidator() *validator.Validate {
	return validate
}

// ValidateRequest checks the validate tags of req and marks failures as validation errors
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
