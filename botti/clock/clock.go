package clock

import (
	"fmt"
	"time"
)

// Day is a calendar date without a time component. Days are compared by
// value, so they can be used as map keys and in slices loaded from the
// activity tables.
type Day struct {
	Year  int `toml:"year"`
	Month int `toml:"month"`
	Day   int `toml:"day"`
}

func (d Day) String() string {
	return fmt.Sprintf("%d.%d.%d", d.Day, d.Month, d.Year)
}

func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: int(m), Day: d}
}

// UTCDayOf returns the calendar date of t in UTC.
func UTCDayOf(t time.Time) Day {
	return DayOf(t.UTC())
}

// UTCMidnight returns the start of t's day in UTC.
func UTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ToTime converts a timestamp in seconds to a UTC time.
func ToTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

// Bucket returns the five-minute scoring bucket index of t, in t's own
// location. There are 288 buckets in a day.
func Bucket(t time.Time) int {
	return (t.Hour()*60 + t.Minute()) / 5
}

// LoadLocation wraps time.LoadLocation with a helpful error.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
