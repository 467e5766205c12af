package bill

import (
	"sort"
)

// GenerationResult is the tally of one generation pass
type GenerationResult struct {
	Generated            int      `json:"generated"`
	Skipped              int      `json:"skipped"`
	Duplicates           int      `json:"duplicates"`
	Errors               int      `json:"errors"`
	CompensationFailures int      `json:"compensation_failures"`
	OrphansRemoved       int      `json:"orphans_removed"`
	OrgIDs               []string `json:"org_ids"`
}

// Add folds the counters of other into r. Org ids are merged without duplicates.
func (r *GenerationResult) Add(other *GenerationResult) {
	if other == nil {
		return
	}
	r.Generated += other.Generated
	r.Skipped += other.Skipped
	r.Duplicates += other.Duplicates
	r.Errors += other.Errors
	r.CompensationFailures += other.CompensationFailures
	r.OrphansRemoved += other.OrphansRemoved
	for _, id := range other.OrgIDs {
		r.AddOrg(id)
	}
}

// AddOrg records that templates of orgID were processed
func (r *GenerationResult) AddOrg(orgID string) {
	i := sort.SearchStrings(r.OrgIDs, orgID)
	if i < len(r.OrgIDs) && r.OrgIDs[i] == orgID {
		return
	}
	r.OrgIDs = append(r.OrgIDs, "")
	copy(r.OrgIDs[i+1:], r.OrgIDs[i:])
	r.OrgIDs[i] = orgID
}
