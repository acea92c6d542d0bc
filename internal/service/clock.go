package service

import (
	"time"

	"driverops/internal/model"
)

// Clock supplies the current instant and the calendar the engines reason in
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock returns a wall clock in loc
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{now: time.Now, loc: loc}
}

// FixedClock always returns t, in t's location
func FixedClock(t time.Time) Clock {
	return Clock{now: func() time.Time { return t }, loc: t.Location()}
}

// Now returns the current instant in the clock's location
func (c Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns midnight of the current day
func (c Clock) Today() time.Time {
	return model.DateOnly(c.Now())
}

// Local converts t to the clock's location
func (c Clock) Local(t time.Time) time.Time {
	return t.In(c.loc)
}

// Location returns the calendar location
func (c Clock) Location() *time.Location {
	return c.loc
}

// ParseDate parses YYYY-MM-DD in the clock's location; empty means today
func (c Clock) ParseDate(s string) (time.Time, error) {
	if s == "" {
		return c.Today(), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, invalidf("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseMonth parses YYYY-MM in the clock's location; empty means the current month
func (c Clock) ParseMonth(s string) (int, time.Month, error) {
	if s == "" {
		now := c.Now()
		return now.Year(), now.Month(), nil
	}
	t, err := time.ParseInLocation("2006-01", s, c.loc)
	if err != nil {
		return 0, 0, invalidf("month %q must be YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}

// daysBetween counts calendar days from a to b, negative when b is earlier
func daysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
