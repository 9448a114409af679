package availability

import (
	"sort"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// Index is a read-only occupancy lookup built from one window's intervals.
type Index struct {
	byProperty map[PropertyID][]Interval
	byDay      map[PropertyID]map[int64]int
	size       int
}

// BuildIndex drops cancelled reservations, keeps every block and groups the
// rest by property in start order. An empty input yields an empty index.
func BuildIndex(intervals []Interval) *Index {
	idx := &Index{
		byProperty: make(map[PropertyID][]Interval),
		byDay:      make(map[PropertyID]map[int64]int),
	}
	for _, iv := range intervals {
		if !iv.Active() || iv.Range.Validate() != nil {
			continue
		}
		idx.byProperty[iv.PropertyID] = append(idx.byProperty[iv.PropertyID], iv.Snapshot())
		idx.size++
	}
	for id, items := range idx.byProperty {
		sortByStart(items)
		days := make(map[int64]int)
		for pos, iv := range items {
			for d := range daterange.DaysBetween(iv.Range.Start, iv.Range.End.AddDate(0, 0, -1)) {
				key := dayKey(d)
				if _, taken := days[key]; !taken {
					days[key] = pos
				}
			}
		}
		idx.byDay[id] = days
	}
	return idx
}

func (x *Index) Len() int { return x.size }

func (x *Index) IsEmpty() bool { return x.size == 0 }

// Properties lists the properties with at least one active interval.
func (x *Index) Properties() []PropertyID {
	out := make([]PropertyID, 0, len(x.byProperty))
	for id := range x.byProperty {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForProperty returns the property's active intervals in start order.
func (x *Index) ForProperty(id PropertyID) []Interval {
	items := x.byProperty[id]
	out := make([]Interval, len(items))
	copy(out, items)
	return out
}

// OccupiedOn reports which interval, if any, occupies the property on day.
// A checkout day is free.
func (x *Index) OccupiedOn(id PropertyID, day time.Time) (Interval, bool) {
	days, ok := x.byDay[id]
	if !ok {
		return Interval{}, false
	}
	pos, ok := days[dayKey(day)]
	if !ok {
		return Interval{}, false
	}
	return x.byProperty[id][pos], true
}

// OverlapsWindow returns the intervals intersecting the closed display window
// [start, end], ordered by property then start.
func (x *Index) OverlapsWindow(start, end time.Time) []Interval {
	window, ok := closedWindow(start, end)
	if !ok {
		return nil
	}
	var out []Interval
	for _, id := range x.Properties() {
		for _, iv := range x.byProperty[id] {
			if iv.Range.Overlaps(window) {
				out = append(out, iv)
			}
		}
	}
	return out
}

// PropertyWindow is OverlapsWindow restricted to a single property.
func (x *Index) PropertyWindow(id PropertyID, start, end time.Time) []Interval {
	window, ok := closedWindow(start, end)
	if !ok {
		return nil
	}
	var out []Interval
	for _, iv := range x.byProperty[id] {
		if iv.Range.Overlaps(window) {
			out = append(out, iv)
		}
	}
	return out
}

// closedWindow turns the inclusive [start, end] display window into the
// half-open range the overlap predicate works on.
func closedWindow(start, end time.Time) (daterange.DateRange, bool) {
	r := daterange.DateRange{Start: daterange.Day(start), End: daterange.AddDays(end, 1)}
	if r.Validate() != nil {
		return daterange.DateRange{}, false
	}
	return r, true
}

func dayKey(t time.Time) int64 {
	return daterange.Day(t).Unix() / 86400
}
