package daterange

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"
)

// Layout is the wire format for calendar dates.
const Layout = "2006-01-02"

// UnknownNights is returned by NightCount when the stay length cannot be computed.
const UnknownNights = -1

var ErrInvalidDate = errors.New("daterange: invalid date")

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Day truncates t to its own wall-clock calendar date, expressed as midnight UTC.
// Dates are compared as plain calendar values, so no offset is ever applied.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Layout)
}

// ParseDate reads a bare YYYY-MM-DD value as a calendar date. Values carrying
// a time component are parsed as timestamps and reduced to their wall date.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	if len(value) == len(Layout) {
		d, err := time.Parse(Layout, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
		return d, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// DaysBetween yields every calendar day from start to end, both inclusive.
// The sequence is empty when end is before start and can be ranged over again.
func DaysBetween(start, end time.Time) iter.Seq[time.Time] {
	first, last := Day(start), Day(end)
	return func(yield func(time.Time) bool) {
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// DaysApart returns the whole number of calendar days from a to b.
func DaysApart(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// NightCount is ceil((checkOut - checkIn) in days). Zero or reversed inputs
// yield UnknownNights.
func NightCount(checkIn, checkOut time.Time) int {
	if checkIn.IsZero() || checkOut.IsZero() {
		return UnknownNights
	}
	if checkOut.Before(checkIn) {
		return UnknownNights
	}
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

// NightCountStrings parses both values with ParseDate before counting.
func NightCountStrings(checkIn, checkOut string) int {
	in, err := ParseDate(checkIn)
	if err != nil {
		return UnknownNights
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return UnknownNights
	}
	return NightCount(in, out)
}
