package types

import (
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/samber/lo"
)

// RecurringBillFrequency is the canonical cadence of a recurring bill template
type RecurringBillFrequency string

const (
	RecurringBillFrequencyWeekly      RecurringBillFrequency = "Weekly"
	RecurringBillFrequencyEvery2Weeks RecurringBillFrequency = "Every2Weeks"
	RecurringBillFrequencyMonthly     RecurringBillFrequency = "Monthly"
	RecurringBillFrequencyQuarterly   RecurringBillFrequency = "Quarterly"
	RecurringBillFrequencyYearly      RecurringBillFrequency = "Yearly"
)

// frequencyDisplayLabels maps UI labels onto canonical frequencies
var frequencyDisplayLabels = map[string]RecurringBillFrequency{
	"Biweekly": RecurringBillFrequencyEvery2Weeks,
	"Annually": RecurringBillFrequencyYearly,
}

func (f RecurringBillFrequency) String() string {
	return string(f)
}

func (f RecurringBillFrequency) Validate() error {
	allowed := []RecurringBillFrequency{
		RecurringBillFrequencyWeekly,
		RecurringBillFrequencyEvery2Weeks,
		RecurringBillFrequencyMonthly,
		RecurringBillFrequencyQuarterly,
		RecurringBillFrequencyYearly,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid recurring bill frequency").
			WithHint("Please provide a valid recurring bill frequency").
			WithReportableDetails(map[string]any{
				"allowed":   allowed,
				"frequency": f,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ParseRecurringBillFrequency accepts both canonical values and display labels
func ParseRecurringBillFrequency(s string) (RecurringBillFrequency, error) {
	if f, ok := frequencyDisplayLabels[s]; ok {
		return f, nil
	}
	f := RecurringBillFrequency(s)
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// RolloverPolicy decides what happens when the anchor day does not exist in a month
type RolloverPolicy string

const (
	// RolloverPolicyLastDay clamps to the final day of the month
	RolloverPolicyLastDay RolloverPolicy = "last_day"
	// RolloverPolicyNextMonth moves the occurrence into the following month
	RolloverPolicyNextMonth RolloverPolicy = "next_month"
	// RolloverPolicySkip drops the occurrence
	RolloverPolicySkip RolloverPolicy = "skip"
)

func (p RolloverPolicy) String() string {
	return string(p)
}

func (p RolloverPolicy) Validate() error {
	allowed := []RolloverPolicy{
		RolloverPolicyLastDay,
		RolloverPolicyNextMonth,
		RolloverPolicySkip,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid rollover policy").
			WithHint("Please provide a valid rollover policy").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ScheduleStatus is the lifecycle state of a recurring schedule
type ScheduleStatus string

const (
	ScheduleStatusActive ScheduleStatus = "active"
	ScheduleStatusPaused ScheduleStatus = "paused"
	ScheduleStatusEnded  ScheduleStatus = "ended"
)

func (s ScheduleStatus) String() string {
	return string(s)
}

func (s ScheduleStatus) Validate() error {
	allowed := []ScheduleStatus{
		ScheduleStatusActive,
		ScheduleStatusPaused,
		ScheduleStatusEnded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid schedule status").
			WithHint("Please provide a valid schedule status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
