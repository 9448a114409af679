package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

var ErrInvalidWindow = errors.New("grid: invalid window")

// Window is the run of calendar days currently rendered: Start plus Days-1
// further days, both ends inclusive.
type Window struct {
	Start time.Time
	Days  int
}

func NewWindow(start time.Time, days int) (Window, error) {
	if start.IsZero() {
		return Window{}, fmt.Errorf("%w: start is required", ErrInvalidWindow)
	}
	if days <= 0 {
		return Window{}, fmt.Errorf("%w: day count must be positive, got %d", ErrInvalidWindow, days)
	}
	return Window{Start: daterange.Day(start), Days: days}, nil
}

// WindowBetween covers start through end inclusive.
func WindowBetween(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	return NewWindow(start, daterange.DaysApart(start, end)+1)
}

func (w Window) IsZero() bool { return w.Start.IsZero() && w.Days == 0 }

// End is the last visible day.
func (w Window) End() time.Time {
	return daterange.AddDays(w.Start, w.Days-1)
}

// Range is the window as a half-open range, [Start, End+1).
func (w Window) Range() daterange.DateRange {
	return daterange.DateRange{Start: daterange.Day(w.Start), End: daterange.AddDays(w.Start, w.Days)}
}

func (w Window) Dates() []time.Time {
	out := make([]time.Time, 0, max(w.Days, 0))
	for d := range daterange.DaysBetween(w.Start, w.End()) {
		out = append(out, d)
	}
	return out
}

// Column is the index of day inside the window, or -1.
func (w Window) Column(day time.Time) int {
	if day.IsZero() || w.Days <= 0 {
		return -1
	}
	col := daterange.DaysApart(w.Start, day)
	if col < 0 || col >= w.Days {
		return -1
	}
	return col
}

func (w Window) Shift(days int) Window {
	return Window{Start: daterange.AddDays(w.Start, days), Days: w.Days}
}

// Signature identifies the window as YYYY-MM-DD/<days>.
func (w Window) Signature() string {
	return daterange.Format(w.Start) + "/" + strconv.Itoa(w.Days)
}

func ParseSignature(sig string) (Window, error) {
	start, days, ok := strings.Cut(sig, "/")
	if !ok {
		return Window{}, fmt.Errorf("%w: signature %q", ErrInvalidWindow, sig)
	}
	d, err := daterange.ParseDate(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrInvalidWindow, err)
	}
	n, err := strconv.Atoi(days)
	if err != nil {
		return Window{}, fmt.Errorf("%w: day count %q", ErrInvalidWindow, days)
	}
	return NewWindow(d, n)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", daterange.Format(w.Start), daterange.Format(w.End()))
}
