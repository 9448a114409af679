package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(start, end time.Time) []time.Time {
	var out []time.Time
	for d := range DaysBetween(start, end) {
		out = append(out, d)
	}
	return out
}

func TestDaysBetween_Inclusive(t *testing.T) {
	got := collect(day(2024, 2, 27), day(2024, 3, 1))
	assert.Equal(t, []time.Time{day(2024, 2, 27), day(2024, 2, 28), day(2024, 2, 29), day(2024, 3, 1)}, got)
}

func TestDaysBetween_SingleDayAndEmpty(t *testing.T) {
	assert.Equal(t, []time.Time{day(2025, 1, 1)}, collect(day(2025, 1, 1), day(2025, 1, 1)))
	assert.Empty(t, collect(day(2025, 1, 2), day(2025, 1, 1)))
}

func TestDaysBetween_Restartable(t *testing.T) {
	seq := DaysBetween(day(2025, 5, 1), day(2025, 5, 3))
	var first, second int
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
}

func TestDaysBetween_StopsEarly(t *testing.T) {
	var seen []time.Time
	for d := range DaysBetween(day(2025, 5, 1), day(2025, 5, 31)) {
		seen = append(seen, d)
		if len(seen) == 2 {
			break
		}
	}
	assert.Len(t, seen, 2)
}

func TestNightCount(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     int
	}{
		{name: "four nights", checkIn: day(2025, 3, 1), checkOut: day(2025, 3, 5), want: 4},
		{name: "same day", checkIn: day(2025, 3, 1), checkOut: day(2025, 3, 1), want: 0},
		{name: "partial day rounds up", checkIn: day(2025, 3, 1), checkOut: time.Date(2025, 3, 2, 6, 0, 0, 0, time.UTC), want: 2},
		{name: "zero check-in", checkOut: day(2025, 3, 1), want: UnknownNights},
		{name: "reversed", checkIn: day(2025, 3, 5), checkOut: day(2025, 3, 1), want: UnknownNights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NightCount(tt.checkIn, tt.checkOut))
		})
	}
}

func TestNightCountStrings_InvalidInput(t *testing.T) {
	assert.Equal(t, 3, NightCountStrings("2025-03-01", "2025-03-04"))
	assert.Equal(t, UnknownNights, NightCountStrings("not-a-date", "2025-03-04"))
	assert.Equal(t, UnknownNights, NightCountStrings("2025-03-01", ""))
}

func TestParseDate_BareDateHasNoOffsetDrift(t *testing.T) {
	d, err := ParseDate("2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, day(2025, 1, 1), d)
	assert.Equal(t, "2025-01-01", Format(d))
}

func TestParseDate_TimestampFallback(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2025-01-01T23:30:00-05:00", want: day(2025, 1, 1)},
		{raw: "2025-01-01T00:15:00Z", want: day(2025, 1, 1)},
		{raw: "2025-01-01T10:00:00", want: day(2025, 1, 1)},
		{raw: "2025-01-01 10:00:00", want: day(2025, 1, 1)},
		{raw: "2025-01-01T10:00:00.123456789+02:00", want: day(2025, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "2025-13-01", "01/02/2025", "yesterday"} {
		_, err := ParseDate(raw)
		assert.ErrorIs(t, err, ErrInvalidDate, raw)
	}
}

func TestDaysApart(t *testing.T) {
	assert.Equal(t, 14, DaysApart(day(2025, 1, 1), day(2025, 1, 15)))
	assert.Equal(t, -3, DaysApart(day(2025, 1, 4), day(2025, 1, 1)))
	assert.Equal(t, day(2024, 12, 29), AddDays(day(2025, 1, 1), -3))
}
