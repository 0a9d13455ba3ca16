package harvest

import (
	"fmt"
	"time"
)

// Day is a calendar date used for partitioning. It deliberately carries
// no time zone or clock component.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// DayOf truncates a time to its calendar date.
func DayOf(t time.Time) Day {
	return Day{Year: t.Year(), Month: t.Month(), Date: t.Day()}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Date)
}

// Path formats the day as the YYYY/MM/DD partition directory path.
func (d Day) Path() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, int(d.Month), d.Date)
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return DayOf(d.Time().AddDate(0, 0, 1))
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

// DayRange expands an inclusive [from, to] range into individual days.
func DayRange(from, to Day) []Day {
	var days []Day
	for d := from; !to.Before(d); d = d.Next() {
		days = append(days, d)
	}
	return days
}
