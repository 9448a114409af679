package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_RejectsEmptyAndReversedRanges(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
	}{
		{name: "zero start", end: day(2025, 3, 5)},
		{name: "zero end", start: day(2025, 3, 5)},
		{name: "zero nights", start: day(2025, 3, 5), end: day(2025, 3, 5)},
		{name: "reversed", start: day(2025, 3, 6), end: day(2025, 3, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.start, tt.end)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestNew_NormalizesToCalendarDays(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	dr, err := New(time.Date(2025, 3, 1, 22, 30, 0, 0, bogota), time.Date(2025, 3, 5, 8, 0, 0, 0, bogota))
	require.NoError(t, err)
	assert.Equal(t, day(2025, 3, 1), dr.Start)
	assert.Equal(t, day(2025, 3, 5), dr.End)
	assert.Equal(t, 4, dr.Nights())
}

func TestOverlaps_HalfOpen(t *testing.T) {
	base := MustNew(day(2025, 3, 1), day(2025, 3, 5))
	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{name: "shares last night", other: MustNew(day(2025, 3, 4), day(2025, 3, 8)), want: true},
		{name: "ends where base starts", other: MustNew(day(2025, 3, 5), day(2025, 3, 8)), want: false},
		{name: "ends on base start", other: MustNew(day(2025, 2, 25), day(2025, 3, 1)), want: false},
		{name: "contained", other: MustNew(day(2025, 3, 2), day(2025, 3, 3)), want: true},
		{name: "contains", other: MustNew(day(2025, 2, 1), day(2025, 4, 1)), want: true},
		{name: "identical", other: base, want: true},
		{name: "disjoint", other: MustNew(day(2025, 4, 1), day(2025, 4, 3)), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestIntersect(t *testing.T) {
	a := MustNew(day(2025, 3, 1), day(2025, 3, 5))
	b := MustNew(day(2025, 3, 4), day(2025, 3, 8))

	got, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, MustNew(day(2025, 3, 4), day(2025, 3, 5)), got)

	_, ok = a.Intersect(MustNew(day(2025, 3, 5), day(2025, 3, 6)))
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	assert.Equal(t, "[2025-03-01, 2025-03-03)", MustNew(day(2025, 3, 1), day(2025, 3, 3)).String())
}
