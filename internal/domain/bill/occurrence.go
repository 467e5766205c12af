package bill

import (
	"time"

	"github.com/rentwise/rentwise/internal/types"
)

// Occurrences returns the sorted occurrence dates of s inside [from, to],
// never before the schedule start and never after its end date.
//
// Stepping starts at lastGenerated, else nextRunDate, else the start date,
// and never earlier than from, so missed history is not replayed.
func Occurrences(s *Schedule, from, to time.Time, lastGenerated, nextRunDate *time.Time, loc *time.Location) ([]time.Time, error) {
	if s == nil || s.Recurrence == nil {
		return nil, ErrUnsupportedFrequency
	}
	if err := s.Recurrence.Validate(); err != nil {
		return nil, err
	}

	start := types.DateOnly(s.StartDate)
	cursor := start
	switch {
	case lastGenerated != nil:
		cursor = types.DateOnly(*lastGenerated)
	case nextRunDate != nil:
		cursor = types.DateOnly(*nextRunDate)
	}
	cursor = types.MaxDate(types.MaxDate(cursor, start), types.DateOnly(from))

	bound := types.DateOnly(to)
	if s.EndDate != nil {
		bound = types.MinDate(bound, types.DateOnly(*s.EndDate))
	}

	var dates []time.Time
	for !cursor.After(bound) {
		next, ok := s.Recurrence.firstOnOrAfter(start, cursor, loc)
		if !ok || next.After(bound) {
			break
		}
		dates = append(dates, next)
		// a zero gap would re-emit the same date
		cursor = next.AddDate(0, 0, 1)
	}
	return dates, nil
}

// NextOccurrence is the first occurrence strictly after the given date.
// ok is false when the schedule has no further occurrence.
func NextOccurrence(s *Schedule, after time.Time, loc *time.Location) (time.Time, bool, error) {
	if s == nil || s.Recurrence == nil {
		return time.Time{}, false, ErrUnsupportedFrequency
	}
	if err := s.Recurrence.Validate(); err != nil {
		return time.Time{}, false, err
	}

	start := types.DateOnly(s.StartDate)
	cursor := types.MaxDate(types.DateOnly(after).AddDate(0, 0, 1), start)
	next, ok := s.Recurrence.firstOnOrAfter(start, cursor, loc)
	if !ok {
		return time.Time{}, false, nil
	}
	if s.EndDate != nil && next.After(types.DateOnly(*s.EndDate)) {
		return time.Time{}, false, nil
	}
	return next, true, nil
}

func (r Weekly) firstOnOrAfter(start, date time.Time, loc *time.Location) (time.Time, bool) {
	return firstOnWeekGrid(start, date, r.DayOfWeek, 7, loc), true
}

func (r EveryTwoWeeks) firstOnOrAfter(start, date time.Time, loc *time.Location) (time.Time, bool) {
	return firstOnWeekGrid(start, date, r.DayOfWeek, 14, loc), true
}

// firstOnWeekGrid lays a grid of period days over the calendar, starting at the
// first dayOfWeek on or after start, and returns the first grid date not before date.
// Consecutive grid dates are always exactly one period apart.
func firstOnWeekGrid(start, date time.Time, dayOfWeek, period int, loc *time.Location) time.Time {
	gap := (dayOfWeek - types.DayOfWeekIn(start, loc) + 7) % 7
	origin := start.AddDate(0, 0, gap)
	if !date.After(origin) {
		return origin
	}
	days := types.DaysBetween(origin, date)
	cycles := (days + period - 1) / period
	return origin.AddDate(0, 0, cycles*period)
}

func (r Monthly) firstOnOrAfter(_, date time.Time, _ *time.Location) (time.Time, bool) {
	candidate := types.AddMonthsClamped(date, 0, r.DayOfMonth)
	if candidate.Before(date) {
		candidate = types.AddMonthsClamped(date, 1, r.DayOfMonth)
	}
	return candidate, true
}

func (r Quarterly) firstOnOrAfter(_, date time.Time, _ *time.Location) (time.Time, bool) {
	return firstInMonthCycle(date, r.Month, 3, r.DayOfMonth, r.Rollover)
}

func (r Yearly) firstOnOrAfter(_, date time.Time, _ *time.Location) (time.Time, bool) {
	return firstInMonthCycle(date, r.Month, 12, r.DayOfMonth, r.Rollover)
}

// firstInMonthCycle walks the months congruent to anchor modulo period and
// resolves day in each through the rollover policy. A next_month rollover can
// move the previous cycle month into date's month, so the walk starts one
// month early. A skip in date's month or later ends the stepping.
func firstInMonthCycle(date time.Time, anchor time.Month, period, day int, policy types.RolloverPolicy) (time.Time, bool) {
	dateIndex := monthIndex(date.Year(), date.Month())
	idx := dateIndex - 1
	idx += mod(int(anchor)-1-mod(idx, 12), period)

	for ; ; idx += period {
		year, month := idx/12, time.Month(idx%12+1)
		resolved, ok := types.ResolveRollover(year, month, day, policy)
		if !ok {
			if idx >= dateIndex {
				return time.Time{}, false
			}
			continue
		}
		if !resolved.Before(date) {
			return resolved, true
		}
	}
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

func mod(a, b int) int {
	return ((a % b) + b) % b
}
