package bill

import (
	ierr "github.com/rentwise/rentwise/internal/errors"
)

var (
	// ErrUnsupportedFrequency is returned for schedules without a usable recurrence.
	// It is a configuration problem of the template, not a failure of the run.
	ErrUnsupportedFrequency = ierr.NewError("unsupported recurring bill frequency").
				WithHint("Recurring schedule frequency must be Weekly, Every2Weeks, Monthly, Quarterly or Yearly").
				Mark(ierr.ErrValidation)

	// ErrScheduleMissing is returned when a recurring template carries no schedule
	ErrScheduleMissing = ierr.NewError("recurring schedule missing").
				WithHint("Recurring bill has no schedule attached").
				Mark(ierr.ErrValidation)
)

// NewNotFoundError builds the not found error for a bill lookup
func NewNotFoundError(field, value string) error {
	return ierr.NewError("bill not found").
		WithHint("Bill was not found").
		WithReportableDetails(map[string]any{
			field: value,
		}).
		Mark(ierr.ErrNotFound)
}

// NewDuplicateInstanceError is returned when an instance for the template and date already exists
func NewDuplicateInstanceError(key string) error {
	return ierr.NewError("recurring bill instance already exists").
		WithHint("A bill has already been generated for this date").
		WithReportableDetails(map[string]any{
			"idempotency_key": key,
		}).
		Mark(ierr.ErrAlreadyExists)
}
