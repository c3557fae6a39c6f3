package app

import "time"

// Calendar answers "what day is it" for the rapid fire gate in an explicit time zone.
type Calendar struct {
	now func() time.Time
	loc *time.Location
}

// NewCalendar builds a calendar over now in loc. Nil arguments default to time.Now and
// the service's local zone.
func NewCalendar(now func() time.Time, loc *time.Location) Calendar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return Calendar{now: now, loc: loc}
}

// Now returns the current instant.
func (c Calendar) Now() time.Time {
	return c.now()
}

// Day returns the midnight that starts t's calendar day in the calendar's zone.
func (c Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// DayKey formats t's calendar day as yyyy-mm-dd.
func (c Calendar) DayKey(t time.Time) string {
	return c.Day(t).Format("2006-01-02")
}

// IsEligibleToday reports whether a user whose last rapid fire completion is checkpoint may
// start a new run at now: either no run was ever completed, or it happened on an earlier day.
func (c Calendar) IsEligibleToday(checkpoint *time.Time, now time.Time) bool {
	if checkpoint == nil {
		return true
	}
	return c.Day(*checkpoint).Before(c.Day(now))
}
