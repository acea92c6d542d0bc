package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day format used by requests and reports
const DateLayout = "2006-01-02"

// NewID returns a new opaque entity identifier
func NewID() string {
	return uuid.NewString()
}

// DateOnly truncates t to midnight in its own location
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameMonth reports whether a and b fall in the same calendar month
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// SameDay reports whether a and b fall on the same calendar day
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
