package events

import "time"

// StartOfDay returns midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// TomorrowWindow is the start window of the shoots announced on the day of now.
// When tomorrow is a Saturday the window runs through the end of the following Monday.
func TomorrowWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	tomorrow := StartOfDay(now, loc).AddDate(0, 0, 1)
	end := EndOfDay(tomorrow, loc)
	if tomorrow.Weekday() == time.Saturday {
		end = EndOfDay(tomorrow.AddDate(0, 0, 2), loc)
	}
	return tomorrow, end
}
