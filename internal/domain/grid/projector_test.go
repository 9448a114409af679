package grid

import (
	"testing"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func window(t *testing.T, start time.Time, days int) Window {
	t.Helper()
	w, err := NewWindow(start, days)
	require.NoError(t, err)
	return w
}

func stay(id string, property availability.PropertyID, in, out time.Time, status availability.Status) availability.Interval {
	return availability.Interval{
		ID:         availability.IntervalID(id),
		PropertyID: property,
		Kind:       availability.KindReservation,
		Status:     status,
		Range:      daterange.MustNew(in, out),
		Label:      "Guest " + id,
	}
}

func hold(id string, property availability.PropertyID, in, out time.Time) availability.Interval {
	return availability.Interval{
		ID:          availability.IntervalID(id),
		PropertyID:  property,
		Kind:        availability.KindBlock,
		BlockType:   "mantenimiento",
		Description: "pintura",
		Range:       daterange.MustNew(in, out),
	}
}

func TestProjectInterval_ClipsToWindow(t *testing.T) {
	w := window(t, day(2025, 1, 15), 3)

	bar, ok := ProjectInterval(w, stay("r1", "p1", day(2025, 1, 10), day(2025, 1, 20), availability.StatusConfirmed))

	require.True(t, ok)
	assert.Equal(t, 0, bar.ColStart)
	assert.Equal(t, 3, bar.ColSpan)
	assert.Equal(t, 10, bar.Nights)
	assert.True(t, bar.ClippedStart)
	assert.True(t, bar.ClippedEnd)
}

func TestProjectInterval(t *testing.T) {
	w := window(t, day(2025, 3, 1), 7) // 03-01 .. 03-07

	cases := []struct {
		name     string
		in, out  time.Time
		visible  bool
		colStart int
		colSpan  int
	}{
		{name: "inside", in: day(2025, 3, 2), out: day(2025, 3, 4), visible: true, colStart: 1, colSpan: 2},
		{name: "checkout on first day", in: day(2025, 2, 25), out: day(2025, 3, 1)},
		{name: "starts on last day", in: day(2025, 3, 7), out: day(2025, 3, 9), visible: true, colStart: 6, colSpan: 1},
		{name: "starts after window", in: day(2025, 3, 8), out: day(2025, 3, 9)},
		{name: "covers window", in: day(2025, 2, 1), out: day(2025, 4, 1), visible: true, colStart: 0, colSpan: 7},
		{name: "clipped left", in: day(2025, 2, 27), out: day(2025, 3, 3), visible: true, colStart: 0, colSpan: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bar, ok := ProjectInterval(w, stay("r", "p1", tc.in, tc.out, availability.StatusPending))
			require.Equal(t, tc.visible, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.colStart, bar.ColStart)
			assert.Equal(t, tc.colSpan, bar.ColSpan)
		})
	}
}

func TestProject_StatusFilters(t *testing.T) {
	w := window(t, day(2025, 3, 1), 14)
	props := []availability.Property{{ID: "p1", Name: "Casa"}, {ID: "p2", Name: "Loft"}}
	idx := availability.BuildIndex([]availability.Interval{
		stay("r1", "p1", day(2025, 3, 1), day(2025, 3, 4), availability.StatusConfirmed),
		stay("r2", "p1", day(2025, 3, 4), day(2025, 3, 6), availability.StatusPending),
		stay("r3", "p1", day(2025, 3, 6), day(2025, 3, 8), availability.StatusCancelled),
		hold("b1", "p2", day(2025, 3, 10), day(2025, 3, 12)),
	})

	ids := func(g Grid) []string {
		var out []string
		for _, row := range g.Rows {
			for _, bar := range row.Bars {
				out = append(out, string(bar.IntervalID))
			}
		}
		return out
	}

	assert.Equal(t, []string{"r1", "r2", "b1"}, ids(Project(w, props, idx, FilterAll, time.Time{})))
	assert.Equal(t, []string{"r1", "r2"}, ids(Project(w, props, idx, FilterOccupied, time.Time{})))
	assert.Equal(t, []string{"r2"}, ids(Project(w, props, idx, FilterPending, time.Time{})))
	assert.Equal(t, []string{"b1"}, ids(Project(w, props, idx, FilterBlocked, time.Time{})))

	available := Project(w, props, idx, FilterAvailable, time.Time{})
	assert.Empty(t, ids(available))
	assert.Len(t, available.Rows, 2)
}

func TestProject_RowsLabelsAndToday(t *testing.T) {
	w := window(t, day(2025, 3, 1), 5)
	props := []availability.Property{{ID: "p2", Name: "Loft"}, {ID: "p1", Name: "Casa"}}
	idx := availability.BuildIndex([]availability.Interval{
		stay("r1", "p1", day(2025, 3, 2), day(2025, 3, 3), availability.StatusConfirmed),
		hold("b1", "p2", day(2025, 3, 1), day(2025, 3, 2)),
	})

	g := Project(w, props, idx, "", day(2025, 3, 4))

	require.Len(t, g.Rows, 2)
	assert.Equal(t, availability.PropertyID("p2"), g.Rows[0].Property.ID)
	assert.Equal(t, "mantenimiento - pintura", g.Rows[0].Bars[0].Label)
	assert.Equal(t, "Guest r1", g.Rows[1].Bars[0].Label)
	assert.Equal(t, 3, g.TodayColumn)
	assert.Equal(t, FilterAll, g.Filter)
	assert.Len(t, g.Dates, 5)
	assert.Equal(t, 2, g.BarCount())

	assert.Equal(t, -1, Project(w, props, idx, FilterAll, day(2025, 3, 6)).TodayColumn)
}

func TestProject_NilIndex(t *testing.T) {
	w := window(t, day(2025, 3, 1), 5)
	g := Project(w, []availability.Property{{ID: "p1"}}, nil, FilterAll, time.Time{})
	require.Len(t, g.Rows, 1)
	assert.Empty(t, g.Rows[0].Bars)
}

func TestMonthGroups(t *testing.T) {
	w := window(t, day(2024, 12, 30), 35)

	groups := MonthGroups(w)

	assert.Equal(t, []MonthGroup{
		{Year: 2024, Month: time.December, ColStart: 0, ColSpan: 2},
		{Year: 2025, Month: time.January, ColStart: 2, ColSpan: 31},
		{Year: 2025, Month: time.February, ColStart: 33, ColSpan: 2},
	}, groups)
}

func TestParseStatusFilter(t *testing.T) {
	for raw, want := range map[string]StatusFilter{
		"": FilterAll, "todos": FilterAll, "ocupado": FilterOccupied, "Pendiente": FilterPending,
		"disponible": FilterAvailable, "bloqueado": FilterBlocked, "blocked": FilterBlocked,
	} {
		got, err := ParseStatusFilter(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseStatusFilter("confirmada")
	assert.Error(t, err)
}
