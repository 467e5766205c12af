package dto

import (
	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/validator"
)

// GenerateRecurringBillsRequest is the optional body of the generation trigger.
// A zero horizon falls back to the configured one, an empty org covers all organizations.
type GenerateRecurringBillsRequest struct {
	DaysHorizon int    `json:"days_horizon,omitempty" validate:"omitempty,gt=0,lte=366"`
	OrgID       string `json:"org_id,omitempty" validate:"omitempty,max=64"`
}

func (r *GenerateRecurringBillsRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GenerateRecurringBillsResponse reports the counters of one generation pass
type GenerateRecurringBillsResponse struct {
	Generated            int      `json:"generated"`
	Skipped              int      `json:"skipped"`
	Duplicates           int      `json:"duplicates"`
	Errors               int      `json:"errors"`
	CompensationFailures int      `json:"compensation_failures"`
	OrphansRemoved       int      `json:"orphans_removed"`
	OrgIDs               []string `json:"org_ids"`
}

func NewGenerateRecurringBillsResponse(r *bill.GenerationResult) *GenerateRecurringBillsResponse {
	orgIDs := r.OrgIDs
	if orgIDs == nil {
		orgIDs = []string{}
	}
	return &GenerateRecurringBillsResponse{
		Generated:            r.Generated,
		Skipped:              r.Skipped,
		Duplicates:           r.Duplicates,
		Errors:               r.Errors,
		CompensationFailures: r.CompensationFailures,
		OrphansRemoved:       r.OrphansRemoved,
		OrgIDs:               orgIDs,
	}
}
