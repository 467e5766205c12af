package types

import (
	"time"

	ierr "github.com/rentwise/rentwise/internal/errors"
)

// DateLayout is the wire format of calendar dates (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// DefaultTimezone is used when an organization has no usable timezone configured
const DefaultTimezone = "America/New_York"

// Date builds a calendar date. Calendar dates are midnight UTC values and carry no zone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the clock of t, keeping the calendar date as seen in t's location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("Invalid date %q, expected YYYY-MM-DD", s).
			Mark(ierr.ErrValidation)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysIn returns the number of days of the given month
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves date n months forward (or back for negative n) and
// places it on targetDay, clamped to the last valid day of the destination month.
// A targetDay <= 0 keeps the day of date.
func AddMonthsClamped(date time.Time, n int, targetDay int) time.Time {
	y, m, d := date.Date()
	if targetDay > 0 {
		d = targetDay
	}

	newY := y
	newM := int(m) + n
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	if last := DaysIn(newY, time.Month(newM)); d > last {
		d = last
	}
	return time.Date(newY, time.Month(newM), d, 0, 0, 0, 0, date.Location())
}

// ResolveRollover places targetDay into the given month according to policy.
// The second return value is false when the policy says the occurrence is skipped.
func ResolveRollover(year int, month time.Month, targetDay int, policy RolloverPolicy) (time.Time, bool) {
	last := DaysIn(year, month)
	if targetDay <= last {
		return Date(year, month, targetDay), true
	}

	switch policy {
	case RolloverPolicyNextMonth:
		if month == time.December {
			return Date(year+1, time.January, targetDay), true
		}
		// the month after a short month always has 31 days
		return Date(year, month+1, targetDay), true
	case RolloverPolicySkip:
		return time.Time{}, false
	default:
		return Date(year, month, last), true
	}
}

// LoadLocation resolves an IANA timezone name
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, ierr.NewError("timezone is empty").
			WithHint("Please configure an IANA timezone").
			Mark(ierr.ErrValidation)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unknown timezone %q", name).
			Mark(ierr.ErrValidation)
	}
	return loc, nil
}

// TodayIn is the calendar date of now in loc
func TodayIn(now time.Time, loc *time.Location) time.Time {
	return DateOnly(now.In(loc))
}

// DayOfWeekIn returns the ISO weekday (1=Monday..7=Sunday) of a calendar date.
// The date is read at noon in loc so zone offsets cannot shift it across midnight.
func DayOfWeekIn(date time.Time, loc *time.Location) int {
	y, m, d := date.Date()
	wd := time.Date(y, m, d, 12, 0, 0, 0, loc).Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// DaysBetween counts whole days from a to b. Both must be calendar dates.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// MaxDate returns the later of two dates
func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// MinDate returns the earlier of two dates
func MinDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
