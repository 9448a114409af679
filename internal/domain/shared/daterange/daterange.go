package daterange

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("daterange: end must be after start")

// DateRange is the half-open span [Start, End) of calendar days. For a stay
// End is the checkout day, which is free for the next arrival.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New truncates both ends to their calendar day and rejects empty or
// reversed spans.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// MustNew is New for literals known to be valid; it panics otherwise.
func MustNew(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

func (dr DateRange) Validate() error {
	switch {
	case dr.Start.IsZero(), dr.End.IsZero():
		return ErrInvalidRange
	case !dr.End.After(dr.Start):
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) IsZero() bool {
	return dr.Start.IsZero() && dr.End.IsZero()
}

func (dr DateRange) Nights() int {
	return NightCount(dr.Start, dr.End)
}

// Overlaps reports s1 < e2 && s2 < e1. A range ending on the day another
// starts does not overlap it.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

// Intersect returns the days two ranges share.
func (dr DateRange) Intersect(other DateRange) (DateRange, bool) {
	if !dr.Overlaps(other) {
		return DateRange{}, false
	}
	out := dr
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.End.Before(out.End) {
		out.End = other.End
	}
	return out, true
}

func (dr DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", Format(dr.Start), Format(dr.End))
}
