package contextutils

import (
	"time"
)

// StartOfDayUTC truncates a timestamp to midnight UTC of the same calendar day.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns every calendar day from `from` through `to` inclusive,
// normalized to midnight UTC. Returns an empty slice when `to` precedes `from`.
// Dashboard timelines use this to zero-fill days with no completions.
func DaysBetween(from, to time.Time) []time.Time {
	start := StartOfDayUTC(from)
	end := StartOfDayUTC(to)
	if end.Before(start) {
		return []time.Time{}
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ClampDayRange validates and bounds a [from, to] day range. If the range is
// inverted it is rejected; if it spans more than maxDays days, `from` is moved
// forward so the range covers the trailing maxDays days ending at `to`.
func ClampDayRange(from, to time.Time, maxDays int) (time.Time, time.Time, error) {
	start := StartOfDayUTC(from)
	end := StartOfDayUTC(to)
	if end.Before(start) {
		return time.Time{}, time.Time{}, WrapError(ErrInvalidInput, "date range end precedes start")
	}

	if maxDays > 0 {
		span := int(end.Sub(start).Hours()/24) + 1
		if span > maxDays {
			start = end.AddDate(0, 0, -(maxDays - 1))
		}
	}

	return start, end, nil
}
