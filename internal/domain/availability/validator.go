package availability

import "sort"

// Conflicts is the one occupancy predicate: two intervals collide when they
// belong to the same property, both are active and their half-open ranges
// overlap.
func Conflicts(a, b Interval) bool {
	return a.PropertyID == b.PropertyID && a.Active() && b.Active() && a.Range.Overlaps(b.Range)
}

// Validate decides whether candidate may be written next to existing. exclude
// names the interval being edited so it never conflicts with itself; pass a
// zero Ref for creations. It returns nil, a *ValidationError or a
// *ConflictError naming the earliest conflicting interval.
func Validate(candidate Interval, existing []Interval, exclude Ref) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	if !candidate.Active() {
		return nil
	}
	var first *Interval
	for i := range existing {
		other := existing[i]
		if !exclude.IsZero() && other.Ref() == exclude {
			continue
		}
		if !Conflicts(candidate, other) {
			continue
		}
		if first == nil || earlier(other, *first) {
			first = &existing[i]
		}
	}
	if first == nil {
		return nil
	}
	overlap, _ := candidate.Range.Intersect(first.Range)
	return &ConflictError{
		PropertyID:      candidate.PropertyID,
		ConflictingID:   first.ID,
		ConflictingKind: first.Kind,
		Overlap:         overlap,
	}
}

// FindConflicts lists every pair of active intervals that break the
// non-overlap invariant.
func FindConflicts(intervals []Interval) [][2]Ref {
	byProperty := make(map[PropertyID][]Interval)
	for _, iv := range intervals {
		if !iv.Active() {
			continue
		}
		byProperty[iv.PropertyID] = append(byProperty[iv.PropertyID], iv)
	}
	properties := make([]PropertyID, 0, len(byProperty))
	for id := range byProperty {
		properties = append(properties, id)
	}
	sort.Slice(properties, func(i, j int) bool { return properties[i] < properties[j] })

	var out [][2]Ref
	for _, id := range properties {
		items := byProperty[id]
		sortByStart(items)
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				if !items[j].Range.Start.Before(items[i].Range.End) {
					break
				}
				if Conflicts(items[i], items[j]) {
					out = append(out, [2]Ref{items[i].Ref(), items[j].Ref()})
				}
			}
		}
	}
	return out
}

func earlier(a, b Interval) bool {
	if !a.Range.Start.Equal(b.Range.Start) {
		return a.Range.Start.Before(b.Range.Start)
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}

func sortByStart(items []Interval) {
	sort.SliceStable(items, func(i, j int) bool { return earlier(items[i], items[j]) })
}
