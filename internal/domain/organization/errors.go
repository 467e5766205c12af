package organization

import (
	ierr "github.com/rentwise/rentwise/internal/errors"
)

// NewNotFoundError builds the not found error for an organization lookup
func NewNotFoundError(id string) error {
	return ierr.NewError("organization not found").
		WithHint("Organization was not found").
		WithReportableDetails(map[string]any{
			"org_id": id,
		}).
		Mark(ierr.ErrNotFound)
}
