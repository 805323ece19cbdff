package calculator

import "time"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekday reports whether the date is Monday to Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PrevWeekday returns the business day before t (Monday -> Friday).
func PrevWeekday(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Monday:
		return Day(t).AddDate(0, 0, -3)
	case time.Sunday:
		return Day(t).AddDate(0, 0, -2)
	default:
		return Day(t).AddDate(0, 0, -1)
	}
}

// ClosestWeekday maps a weekend date to a business day: Saturday to the
// Friday before, Sunday to the Monday after unless that Monday is after
// today, in which case the Friday before.
func ClosestWeekday(t, today time.Time) time.Time {
	d := Day(t)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		monday := d.AddDate(0, 0, 1)
		if monday.After(Day(today)) {
			return d.AddDate(0, 0, -2)
		}
		return monday
	}
	return d
}

// LastWeekdayOfMonth returns the last business day of t's month.
func LastWeekdayOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	if !IsWeekday(last) {
		return PrevWeekday(last)
	}
	return last
}

// PrevMonth returns the last calendar day of the month before t.
func PrevMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 0, -1)
}
