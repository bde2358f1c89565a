package domain

import (
	"fmt"
	"time"
)

// SlotLength is the bookable granularity in minutes.
const SlotLength = 60

const (
	DateLayout    = "2006-01-02"
	timeLayout    = "15:04"
	minutesPerDay = 24 * 60
)

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Aligned reports whether c falls on a slot boundary.
func (c ClockTime) Aligned() bool {
	return c >= 0 && c <= minutesPerDay && int(c)%SlotLength == 0
}

func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

// ParseDate parses a calendar date. Dates are represented as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClockTimeOf returns the time of day of t as observed in loc.
func ClockTimeOf(t time.Time, loc *time.Location) ClockTime {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return ClockTime(local.Hour()*60 + local.Minute())
}

// NormalizeDate drops any time-of-day component.
func NormalizeDate(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts the calendar days in [from, to].
func DaysBetween(from, to time.Time) int {
	return int(NormalizeDate(to).Sub(NormalizeDate(from)).Hours()/24) + 1
}
