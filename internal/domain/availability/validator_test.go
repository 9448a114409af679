package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dr(checkIn, checkOut time.Time) daterange.DateRange {
	return daterange.MustNew(checkIn, checkOut)
}

func march(from, to int) daterange.DateRange {
	return daterange.MustNew(day(2025, 3, from), day(2025, 3, to))
}

func reservation(id string, property PropertyID, r daterange.DateRange, status Status) Interval {
	return Interval{ID: IntervalID(id), PropertyID: property, Kind: KindReservation, Status: status, Range: r}
}

func block(id string, property PropertyID, r daterange.DateRange) Interval {
	return Interval{ID: IntervalID(id), PropertyID: property, Kind: KindBlock, BlockType: DefaultBlockType, Range: r}
}

func TestValidate_BookingScenario(t *testing.T) {
	existing := []Interval{
		reservation("r1", "p1", march(1, 5), StatusConfirmed),
		block("b1", "p1", march(10, 12)),
	}

	cases := []struct {
		name      string
		candidate Interval
		exclude   Ref
		conflict  *Ref
	}{
		{name: "adjacent after reservation", candidate: reservation("new", "p1", march(5, 7), StatusPending)},
		{name: "overlaps reservation", candidate: reservation("new", "p1", march(4, 6), StatusPending), conflict: &Ref{Kind: KindReservation, ID: "r1"}},
		{name: "block overlapping block", candidate: block("new", "p1", march(11, 13)), conflict: &Ref{Kind: KindBlock, ID: "b1"}},
		{name: "other property", candidate: reservation("new", "p2", march(1, 5), StatusPending)},
		{name: "editing itself", candidate: reservation("r1", "p1", march(2, 6), StatusConfirmed), exclude: Ref{Kind: KindReservation, ID: "r1"}},
		{name: "fills gap exactly", candidate: block("new", "p1", march(5, 10))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.candidate, existing, tc.exclude)
			if tc.conflict == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrOverlap)
			conflict, ok := AsConflict(err)
			require.True(t, ok)
			assert.Equal(t, *tc.conflict, conflict.Conflicting())
		})
	}
}

func TestValidate_ReportsOverlapNights(t *testing.T) {
	existing := []Interval{reservation("r1", "p1", march(1, 5), StatusConfirmed)}

	err := Validate(reservation("new", "p1", march(4, 6), StatusPending), existing, Ref{})

	conflict, ok := AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, march(4, 5), conflict.Overlap)
	assert.Equal(t, PropertyID("p1"), conflict.PropertyID)
}

func TestValidate_ReportsEarliestConflict(t *testing.T) {
	existing := []Interval{
		block("b9", "p1", march(8, 9)),
		reservation("r2", "p1", march(3, 4), StatusPending),
		reservation("r1", "p1", march(6, 7), StatusConfirmed),
	}

	err := Validate(block("new", "p1", march(1, 10)), existing, Ref{})

	conflict, ok := AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, Ref{Kind: KindReservation, ID: "r2"}, conflict.Conflicting())
}

func TestValidate_CancelledReservationsNeverConflict(t *testing.T) {
	existing := []Interval{reservation("r1", "p1", march(1, 5), StatusCancelled)}

	assert.NoError(t, Validate(reservation("new", "p1", march(1, 5), StatusPending), existing, Ref{}))
	assert.NoError(t, Validate(block("new", "p1", march(2, 3)), existing, Ref{}))

	active := []Interval{reservation("r2", "p1", march(1, 5), StatusConfirmed)}
	assert.NoError(t, Validate(reservation("new", "p1", march(1, 5), StatusCancelled), active, Ref{}))
}

func TestValidate_ExcludeMatchesKindAndID(t *testing.T) {
	existing := []Interval{block("42", "p1", march(1, 5))}

	err := Validate(reservation("42", "p1", march(2, 3), StatusPending), existing, Ref{Kind: KindReservation, ID: "42"})

	assert.ErrorIs(t, err, ErrOverlap)
}

func TestValidate_RejectsMalformedCandidates(t *testing.T) {
	zeroNights := reservation("new", "p1", daterange.DateRange{Start: day(2025, 3, 5), End: day(2025, 3, 5)}, StatusPending)
	reversed := block("new", "p1", daterange.DateRange{Start: day(2025, 3, 6), End: day(2025, 3, 5)})
	noProperty := reservation("new", "", march(1, 2), StatusPending)
	badStatus := reservation("new", "p1", march(1, 2), Status("archived"))
	noStart := block("new", "p1", daterange.DateRange{End: day(2025, 3, 5)})

	for name, candidate := range map[string]Interval{
		"zero nights": zeroNights,
		"reversed":    reversed,
		"no property": noProperty,
		"bad status":  badStatus,
		"no start":    noStart,
	} {
		t.Run(name, func(t *testing.T) {
			err := Validate(candidate, nil, Ref{})
			assert.ErrorIs(t, err, ErrInvalidInterval)
			assert.True(t, IsValidation(err))
			assert.False(t, errors.Is(err, ErrOverlap))
		})
	}
}

func TestConflicts_IsSymmetric(t *testing.T) {
	ranges := []daterange.DateRange{march(1, 5), march(4, 6), march(5, 7), march(2, 3), march(10, 12)}
	for _, a := range ranges {
		for _, b := range ranges {
			x := block("a", "p1", a)
			y := reservation("b", "p1", b, StatusPending)
			assert.Equal(t, Conflicts(x, y), Conflicts(y, x), "%s vs %s", a, b)
		}
	}

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"overlapping reservations", reservation("a", "p1", march(1, 5), StatusConfirmed), reservation("b", "p1", march(4, 6), StatusPending), true},
		{"back to back", reservation("a", "p1", march(1, 5), StatusConfirmed), reservation("b", "p1", march(5, 7), StatusConfirmed), false},
		{"block inside reservation", reservation("a", "p1", march(1, 10), StatusInProcess), block("b", "p1", march(3, 4)), true},
		{"cancelled does not hold", reservation("a", "p1", march(1, 5), StatusCancelled), reservation("b", "p1", march(2, 3), StatusConfirmed), false},
		{"other property", reservation("a", "p1", march(1, 5), StatusConfirmed), block("b", "p2", march(1, 5)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ab := Validate(tc.a, []Interval{tc.b}, Ref{})
			ba := Validate(tc.b, []Interval{tc.a}, Ref{})
			if tc.want {
				assert.Error(t, ab)
				assert.Error(t, ba)
				_, okAB := AsConflict(ab)
				_, okBA := AsConflict(ba)
				assert.True(t, okAB && okBA, "both directions report a conflict")
			} else {
				assert.NoError(t, ab)
				assert.NoError(t, ba)
			}
		})
	}
}

func TestValidate_EditingWithUnchangedRangeSucceeds(t *testing.T) {
	existing := []Interval{
		reservation("r1", "p1", march(1, 5), StatusConfirmed),
		reservation("r2", "p1", march(5, 8), StatusPending),
		block("b1", "p1", march(8, 9)),
	}
	for _, iv := range existing {
		assert.NoError(t, Validate(iv, existing, iv.Ref()), iv.Ref().String())
	}
}

func TestFindConflicts(t *testing.T) {
	intervals := []Interval{
		reservation("r1", "p1", march(1, 5), StatusConfirmed),
		reservation("r2", "p1", march(4, 6), StatusPending),
		reservation("r3", "p1", march(4, 6), StatusCancelled),
		block("b1", "p1", march(6, 8)),
		block("b2", "p2", march(1, 3)),
		reservation("r4", "p2", march(2, 4), StatusInProcess),
	}

	got := FindConflicts(intervals)

	assert.Equal(t, [][2]Ref{
		{{Kind: KindReservation, ID: "r1"}, {Kind: KindReservation, ID: "r2"}},
		{{Kind: KindBlock, ID: "b2"}, {Kind: KindReservation, ID: "r4"}},
	}, got)
}
