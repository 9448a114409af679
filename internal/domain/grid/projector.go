package grid

import (
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// Bar is one interval clipped to the visible window.
type Bar struct {
	IntervalID   availability.IntervalID
	Kind         availability.Kind
	Status       availability.Status
	BlockType    string
	Label        string
	Start        time.Time
	End          time.Time
	ColStart     int
	ColSpan      int
	Nights       int
	ClippedStart bool
	ClippedEnd   bool
}

func (b Bar) Ref() availability.Ref {
	return availability.Ref{Kind: b.Kind, ID: b.IntervalID}
}

// Row holds the bars of one property in start order.
type Row struct {
	Property availability.Property
	Bars     []Bar
}

type MonthGroup struct {
	Year     int
	Month    time.Month
	ColStart int
	ColSpan  int
}

type Grid struct {
	Window      Window
	Filter      StatusFilter
	Dates       []time.Time
	Months      []MonthGroup
	Rows        []Row
	TodayColumn int
}

// ProjectInterval clips iv to the window. ColStart is the first visible day
// inside [start, end) and ColSpan counts the covered visible days. Intervals
// entirely outside the window yield no bar.
func ProjectInterval(w Window, iv availability.Interval) (Bar, bool) {
	if w.Days <= 0 || iv.Range.Validate() != nil {
		return Bar{}, false
	}
	visible := w.Range()
	if !iv.Range.Overlaps(visible) {
		return Bar{}, false
	}
	clipped, _ := iv.Range.Intersect(visible)
	return Bar{
		IntervalID:   iv.ID,
		Kind:         iv.Kind,
		Status:       iv.Status,
		BlockType:    iv.BlockType,
		Label:        barLabel(iv),
		Start:        iv.Range.Start,
		End:          iv.Range.End,
		ColStart:     daterange.DaysApart(visible.Start, clipped.Start),
		ColSpan:      clipped.Nights(),
		Nights:       iv.Nights(),
		ClippedStart: iv.Range.Start.Before(visible.Start),
		ClippedEnd:   iv.Range.End.After(visible.End),
	}, true
}

// Project builds one row per property, in the given order, with the bars the
// filter allows. Rows are kept even when they end up empty. today may be
// zero, in which case TodayColumn is -1.
func Project(w Window, properties []availability.Property, idx *availability.Index, filter StatusFilter, today time.Time) Grid {
	if filter == "" {
		filter = FilterAll
	}
	g := Grid{
		Window:      w,
		Filter:      filter,
		Dates:       w.Dates(),
		Months:      MonthGroups(w),
		Rows:        make([]Row, 0, len(properties)),
		TodayColumn: w.Column(today),
	}
	for _, p := range properties {
		row := Row{Property: p}
		if idx != nil && w.Days > 0 {
			for _, iv := range idx.PropertyWindow(p.ID, w.Start, w.End()) {
				if !filter.Allows(iv) {
					continue
				}
				if bar, ok := ProjectInterval(w, iv); ok {
					row.Bars = append(row.Bars, bar)
				}
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

// MonthGroups groups consecutive window days sharing a year and month.
func MonthGroups(w Window) []MonthGroup {
	var out []MonthGroup
	col := 0
	for d := range daterange.DaysBetween(w.Start, w.End()) {
		n := len(out)
		if n > 0 && out[n-1].Year == d.Year() && out[n-1].Month == d.Month() {
			out[n-1].ColSpan++
		} else {
			out = append(out, MonthGroup{Year: d.Year(), Month: d.Month(), ColStart: col, ColSpan: 1})
		}
		col++
	}
	return out
}

func barLabel(iv availability.Interval) string {
	if iv.Kind == availability.KindBlock {
		label := iv.BlockType
		if label == "" {
			label = availability.DefaultBlockType
		}
		if iv.Description != "" {
			label += " - " + iv.Description
		}
		return label
	}
	if iv.Label != "" {
		return iv.Label
	}
	return string(iv.ID)
}

// BarCount is the number of bars across every row.
func (g Grid) BarCount() int {
	n := 0
	for _, row := range g.Rows {
		n += len(row.Bars)
	}
	return n
}
