package calendar

import "time"

// DayStart truncates d to midnight in d's location.
func DayStart(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

// DayEnd returns 23:59:59.999 on d's calendar day.
func DayEnd(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 23, 59, 59, int(time.Millisecond*999), d.Location())
}

// MonthStart returns the first day of d's month at midnight.
func MonthStart(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, d.Location())
}

// MonthEnd returns the last day of d's month at midnight. Day 0 of the
// following month normalizes to the last day of this one, which covers
// leap years without counting days by hand.
func MonthEnd(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, d.Location())
}

// WeekStart returns midnight on the Monday of d's week.
func WeekStart(d time.Time) time.Time {
	offset := int(d.Weekday()) - 1
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	y, m, day := d.Date()
	return time.Date(y, m, day-offset, 0, 0, 0, 0, d.Location())
}

// WeekEnd returns 23:59:59.999 on the Sunday of d's week.
func WeekEnd(d time.Time) time.Time {
	return DayEnd(WeekStart(d).AddDate(0, 0, 6))
}

// AddMonths moves d by n calendar months, clamping the day to the last day
// of the target month (Jan 31 + 1 month is Feb 28/29, never March).
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
	if last := MonthEnd(first).Day(); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// GenerateMonthGrid returns one midnight per day from the Monday on or
// before the 1st of the month through the Sunday on or after its last day.
// The result length is always a multiple of 7.
func GenerateMonthGrid(year int, month time.Month, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return daysBetween(WeekStart(first), WeekEnd(MonthEnd(first)))
}

// WeekDates returns the seven midnights of d's Monday-first week.
func WeekDates(d time.Time) []time.Time {
	return daysBetween(WeekStart(d), WeekEnd(d))
}

// daysBetween lists the midnights of every calendar day in [from, to].
func daysBetween(from, to time.Time) []time.Time {
	var out []time.Time
	y, m, day := from.Date()
	for i := 0; ; i++ {
		cur := time.Date(y, m, day+i, 0, 0, 0, 0, from.Location())
		if cur.After(to) {
			break
		}
		out = append(out, cur)
	}
	return out
}

// IsSameDay compares calendar dates, ignoring time of day. b is viewed in
// a's location so both sides use the same wall clock.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// IsToday reports whether d falls on the current calendar day.
func IsToday(d time.Time) bool {
	return IsSameDay(d, time.Now())
}

// IsTodayAt is IsToday against an explicit "now".
func IsTodayAt(d, now time.Time) bool {
	return IsSameDay(d, now)
}
