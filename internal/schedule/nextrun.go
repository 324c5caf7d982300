package schedule

import "time"

// NextRun computes the next occurrence of a recurrence rule strictly after
// from. Day is clamped to the length of the target month, so "every 31st"
// fires on Feb 28/29, Apr 30 and so on instead of skipping short months.
//
// "Due" is candidate <= from: computing the next run from exactly the fire
// instant always advances to the following occurrence instead of returning
// the same instant again.
//
// For Yearly the rule's month must be set; without it (upstream validation
// failure) the date is left unchanged and only the time of day is rewritten.
func NextRun(kind RepeatKind, day int, from time.Time, month, hour, minute int) time.Time {
	loc := from.Location()

	switch {
	case kind == Monthly:
		y, m := from.Year(), int(from.Month())
		d := clampDay(day, y, m)
		candidate := time.Date(y, time.Month(m), d, hour, minute, 0, 0, loc)
		if !candidate.After(from) {
			m++
			if m > 12 {
				m = 1
				y++
			}
			d = clampDay(day, y, m)
			candidate = time.Date(y, time.Month(m), d, hour, minute, 0, 0, loc)
		}
		return candidate

	case kind == Yearly && month >= 1 && month <= 12:
		y := from.Year()
		d := clampDay(day, y, month)
		candidate := time.Date(y, time.Month(month), d, hour, minute, 0, 0, loc)
		if !candidate.After(from) {
			y++
			d = clampDay(day, y, month)
			candidate = time.Date(y, time.Month(month), d, hour, minute, 0, 0, loc)
		}
		return candidate
	}

	return time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, loc)
}

func clampDay(day, year, month int) int {
	if n := daysInMonth(year, month); day > n {
		return n
	}
	return day
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if isLeap(year) {
		return 29
	}
	return 28
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
