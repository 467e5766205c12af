package bill

import (
	"encoding/json"
	"time"

	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/types"
)

// Recurrence is the frequency specific part of a schedule. The concrete
// variants are Weekly, EveryTwoWeeks, Monthly, Quarterly and Yearly.
type Recurrence interface {
	Frequency() types.RecurringBillFrequency
	Validate() error

	// firstOnOrAfter returns the earliest occurrence that is not before date.
	// ok is false when stepping has to stop for this pass.
	firstOnOrAfter(start, date time.Time, loc *time.Location) (occurrence time.Time, ok bool)
}

// Weekly recurs every week on DayOfWeek (1=Monday..7=Sunday)
type Weekly struct {
	DayOfWeek int
}

// EveryTwoWeeks recurs every other week on DayOfWeek, counted from the first
// matching day on or after the schedule start
type EveryTwoWeeks struct {
	DayOfWeek int
}

// Monthly recurs on DayOfMonth, clamped to the last day of shorter months
type Monthly struct {
	DayOfMonth int
}

// Quarterly recurs every three months in the cycle of Month
type Quarterly struct {
	Month      time.Month
	DayOfMonth int
	Rollover   types.RolloverPolicy
}

// Yearly recurs once a year in Month
type Yearly struct {
	Month      time.Month
	DayOfMonth int
	Rollover   types.RolloverPolicy
}

func (Weekly) Frequency() types.RecurringBillFrequency {
	return types.RecurringBillFrequencyWeekly
}

func (EveryTwoWeeks) Frequency() types.RecurringBillFrequency {
	return types.RecurringBillFrequencyEvery2Weeks
}

func (Monthly) Frequency() types.RecurringBillFrequency {
	return types.RecurringBillFrequencyMonthly
}

func (Quarterly) Frequency() types.RecurringBillFrequency {
	return types.RecurringBillFrequencyQuarterly
}

func (Yearly) Frequency() types.RecurringBillFrequency {
	return types.RecurringBillFrequencyYearly
}

func (r Weekly) Validate() error {
	return validateDayOfWeek(r.DayOfWeek)
}

func (r EveryTwoWeeks) Validate() error {
	return validateDayOfWeek(r.DayOfWeek)
}

func (r Monthly) Validate() error {
	return validateDayOfMonth(r.DayOfMonth)
}

func (r Quarterly) Validate() error {
	return validateMonthAnchor(r.Month, r.DayOfMonth, r.Rollover)
}

func (r Yearly) Validate() error {
	return validateMonthAnchor(r.Month, r.DayOfMonth, r.Rollover)
}

func validateDayOfWeek(day int) error {
	if day < 1 || day > 7 {
		return ierr.NewError("day_of_week must be between 1 and 7").
			WithHint("Please choose a weekday between Monday (1) and Sunday (7)").
			WithReportableDetails(map[string]any{
				"day_of_week": day,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func validateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return ierr.NewError("day_of_month must be between 1 and 31").
			WithHint("Please choose a day of month between 1 and 31").
			WithReportableDetails(map[string]any{
				"day_of_month": day,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func validateMonthAnchor(month time.Month, day int, policy types.RolloverPolicy) error {
	if month < time.January || month > time.December {
		return ierr.NewError("month must be between 1 and 12").
			WithHint("Please choose an anchor month between January (1) and December (12)").
			WithReportableDetails(map[string]any{
				"month": int(month),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := validateDayOfMonth(day); err != nil {
		return err
	}
	return policy.Validate()
}

// Schedule is the recurrence definition embedded in a template bill
type Schedule struct {
	Recurrence Recurrence
	StartDate  time.Time
	EndDate    *time.Time
	Status     types.ScheduleStatus

	// Bookkeeping written only by the progression step of the generator
	LastGeneratedAt *time.Time
	NextRunDate     *time.Time
}

// IsActive reports whether the schedule may generate instances
func (s *Schedule) IsActive() bool {
	return s != nil && s.Status == types.ScheduleStatusActive
}

// IsExpired reports whether the schedule ended before today
func (s *Schedule) IsExpired(today time.Time) bool {
	return s.EndDate != nil && s.EndDate.Before(today)
}

// LastGeneratedDate is the calendar date of LastGeneratedAt
func (s *Schedule) LastGeneratedDate() *time.Time {
	if s.LastGeneratedAt == nil {
		return nil
	}
	d := types.DateOnly(s.LastGeneratedAt.UTC())
	return &d
}

// Advance records that every occurrence up to and including watermark was handled.
// LastGeneratedAt never moves backwards.
func (s *Schedule) Advance(watermark time.Time, loc *time.Location) error {
	if last := s.LastGeneratedDate(); last == nil || watermark.After(*last) {
		at := types.DateOnly(watermark)
		s.LastGeneratedAt = &at
	}

	next, ok, err := NextOccurrence(s, *s.LastGeneratedDate(), loc)
	if err != nil {
		return err
	}
	if ok {
		s.NextRunDate = &next
	} else {
		s.NextRunDate = nil
	}
	return nil
}

func (s *Schedule) Validate() error {
	if s.Recurrence == nil {
		return ErrUnsupportedFrequency
	}
	if err := s.Recurrence.Validate(); err != nil {
		return err
	}
	if err := s.Status.Validate(); err != nil {
		return err
	}
	if s.StartDate.IsZero() {
		return ierr.NewError("start_date is required").
			WithHint("Recurring schedule needs a start date").
			Mark(ierr.ErrValidation)
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return ierr.NewError("end_date is before start_date").
			WithHint("Recurring schedule end date must be on or after its start date").
			WithReportableDetails(map[string]any{
				"start_date": types.FormatDate(s.StartDate),
				"end_date":   types.FormatDate(*s.EndDate),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// scheduleJSON is the persisted shape of a schedule
type scheduleJSON struct {
	Frequency       string               `json:"frequency"`
	DayOfMonth      *int                 `json:"day_of_month,omitempty"`
	DayOfWeek       *int                 `json:"day_of_week,omitempty"`
	Month           *int                 `json:"month,omitempty"`
	RolloverPolicy  types.RolloverPolicy `json:"rollover_policy,omitempty"`
	StartDate       string               `json:"start_date"`
	EndDate         *string              `json:"end_date,omitempty"`
	Status          types.ScheduleStatus `json:"status"`
	LastGeneratedAt *time.Time           `json:"last_generated_at,omitempty"`
	NextRunDate     *string              `json:"next_run_date,omitempty"`
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	out := scheduleJSON{
		StartDate:       types.FormatDate(s.StartDate),
		Status:          s.Status,
		LastGeneratedAt: s.LastGeneratedAt,
	}
	if s.EndDate != nil {
		end := types.FormatDate(*s.EndDate)
		out.EndDate = &end
	}
	if s.NextRunDate != nil {
		next := types.FormatDate(*s.NextRunDate)
		out.NextRunDate = &next
	}

	switch r := s.Recurrence.(type) {
	case Weekly:
		out.DayOfWeek = &r.DayOfWeek
	case EveryTwoWeeks:
		out.DayOfWeek = &r.DayOfWeek
	case Monthly:
		out.DayOfMonth = &r.DayOfMonth
	case Quarterly:
		month := int(r.Month)
		out.Month = &month
		out.DayOfMonth = &r.DayOfMonth
		out.RolloverPolicy = r.Rollover
	case Yearly:
		month := int(r.Month)
		out.Month = &month
		out.DayOfMonth = &r.DayOfMonth
		out.RolloverPolicy = r.Rollover
	default:
		return nil, ErrUnsupportedFrequency
	}
	out.Frequency = string(s.Recurrence.Frequency())

	return json.Marshal(out)
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var in scheduleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return ierr.WithError(err).
			WithHint("Recurring schedule is not valid JSON").
			Mark(ierr.ErrValidation)
	}

	frequency, err := types.ParseRecurringBillFrequency(in.Frequency)
	if err != nil {
		return ierr.WithError(ErrUnsupportedFrequency).
			WithReportableDetails(map[string]any{
				"frequency": in.Frequency,
			}).
			Mark(ierr.ErrValidation)
	}

	policy := in.RolloverPolicy
	if policy == "" {
		policy = types.RolloverPolicyLastDay
	}
	dayOfWeek := intOr(in.DayOfWeek, 1)
	month := time.Month(intOr(in.Month, 1))

	var r Recurrence
	switch frequency {
	case types.RecurringBillFrequencyWeekly:
		r = Weekly{DayOfWeek: dayOfWeek}
	case types.RecurringBillFrequencyEvery2Weeks:
		r = EveryTwoWeeks{DayOfWeek: dayOfWeek}
	case types.RecurringBillFrequencyMonthly:
		r = Monthly{DayOfMonth: intOr(in.DayOfMonth, 0)}
	case types.RecurringBillFrequencyQuarterly:
		r = Quarterly{Month: month, DayOfMonth: intOr(in.DayOfMonth, 0), Rollover: policy}
	case types.RecurringBillFrequencyYearly:
		r = Yearly{Month: month, DayOfMonth: intOr(in.DayOfMonth, 0), Rollover: policy}
	}

	start, err := types.ParseDate(in.StartDate)
	if err != nil {
		return err
	}

	out := Schedule{
		Recurrence:      r,
		StartDate:       start,
		Status:          in.Status,
		LastGeneratedAt: in.LastGeneratedAt,
	}
	if out.Status == "" {
		out.Status = types.ScheduleStatusActive
	}
	if in.EndDate != nil && *in.EndDate != "" {
		end, err := types.ParseDate(*in.EndDate)
		if err != nil {
			return err
		}
		out.EndDate = &end
	}
	if in.NextRunDate != nil && *in.NextRunDate != "" {
		next, err := types.ParseDate(*in.NextRunDate)
		if err != nil {
			return err
		}
		out.NextRunDate = &next
	}

	if err := out.Validate(); err != nil {
		return err
	}

	*s = out
	return nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
