package navigator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

var today = day(2025, 3, 10)

// gatedFetcher holds each response until the test releases its window.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	calls   []Query
	results map[string]Result
	fail    error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: map[string]chan struct{}{}, results: map[string]Result{}}
}

func (f *gatedFetcher) gate(sig string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[sig]
	if !ok {
		ch = make(chan struct{})
		f.gates[sig] = ch
	}
	return ch
}

func (f *gatedFetcher) release(sig string) { close(f.gate(sig)) }

func (f *gatedFetcher) Fetch(ctx context.Context, q Query) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	select {
	case <-f.gate(q.Window.Signature()):
	case <-time.After(2 * time.Second):
		return Result{}, errors.New("gate never released")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return Result{}, f.fail
	}
	return f.results[q.Window.Signature()], nil
}

func newNavigator(t *testing.T, f Fetcher) *Navigator {
	t.Helper()
	n, err := New(Options{Fetcher: f, Engine: engine.New(availability.FixedClock{At: today.Add(14 * time.Hour)})})
	require.NoError(t, err)
	t.Cleanup(n.Close)
	return n
}

func immediate(res Result) Fetcher {
	return FetcherFunc(func(context.Context, Query) (Result, error) { return res, nil })
}

func TestNew_StartsBeforeToday(t *testing.T) {
	n := newNavigator(t, immediate(Result{}))
	w := n.Window()
	assert.Equal(t, day(2025, 3, 7), w.Start)
	assert.Equal(t, DefaultDayCount, w.Days)

	_, err := New(Options{})
	assert.Error(t, err)
}

func TestShift_InverseRestoresStart(t *testing.T) {
	n := newNavigator(t, immediate(Result{}))
	start := n.Window().Start

	require.NoError(t, n.Shift(1))
	assert.Equal(t, daterange.AddDays(start, 7), n.Window().Start)
	require.NoError(t, n.Shift(-1))
	n.Wait()

	assert.Equal(t, start, n.Window().Start)
	assert.ErrorIs(t, n.Shift(2), ErrInvalidDirection)
}

func TestTransitions(t *testing.T) {
	n := newNavigator(t, immediate(Result{}))

	require.NoError(t, n.SetCustomRange(day(2025, 4, 1), day(2025, 4, 3)))
	assert.Equal(t, grid.Window{Start: day(2025, 4, 1), Days: MinCustomDays}, n.Window())

	require.NoError(t, n.SetCustomRange(day(2025, 4, 1), day(2025, 4, 30)))
	assert.Equal(t, 30, n.Window().Days)

	require.NoError(t, n.SetFixedPeriod(21))
	assert.Equal(t, grid.Window{Start: day(2025, 4, 1), Days: 21}, n.Window())

	n.JumpToday()
	assert.Equal(t, grid.Window{Start: day(2025, 3, 7), Days: 21}, n.Window())

	assert.ErrorIs(t, n.SetFixedPeriod(0), ErrInvalidPeriod)
	assert.ErrorIs(t, n.SetCustomRange(day(2025, 4, 3), day(2025, 4, 1)), ErrInvalidPeriod)
	n.Wait()
}

func TestFetch_ProjectsLoadedWindow(t *testing.T) {
	res := Result{
		Properties: []availability.Property{
			{ID: "p1", Name: "Casa Playa", City: "Cartagena"},
			{ID: "p2", Name: "Loft", City: "Medellín"},
		},
		Intervals: []availability.Interval{{
			ID: "r1", PropertyID: "p1", Kind: availability.KindReservation,
			Status: availability.StatusConfirmed, Range: daterange.MustNew(day(2025, 3, 8), day(2025, 3, 12)),
		}},
	}
	n := newNavigator(t, immediate(res))

	n.SetPropertyFilter(availability.PropertyFilter{City: "Cartagena"})
	n.Wait()

	v := n.View()
	require.NoError(t, v.Err)
	assert.False(t, v.Loading)
	require.NotNil(t, v.Grid)
	require.Len(t, v.Grid.Rows, 1)
	assert.Equal(t, 3, v.Grid.TodayColumn)
	assert.Equal(t, []string{"Cartagena", "Medellín"}, v.Cities)
	bar := v.Grid.Rows[0].Bars[0]
	assert.Equal(t, 1, bar.ColStart)
	assert.Equal(t, 4, bar.ColSpan)

	occupant, ok := n.OccupiedOn("p1", day(2025, 3, 11))
	require.True(t, ok)
	assert.Equal(t, availability.IntervalID("r1"), occupant.ID)

	candidate := availability.Interval{
		ID: "new", PropertyID: "p1", Kind: availability.KindBlock,
		Range: daterange.MustNew(day(2025, 3, 11), day(2025, 3, 13)),
	}
	assert.ErrorIs(t, n.PreCheck(candidate, availability.Ref{}), availability.ErrOverlap)
	candidate.Range = daterange.MustNew(day(2025, 3, 12), day(2025, 3, 13))
	assert.NoError(t, n.PreCheck(candidate, availability.Ref{}))
}

func TestFetch_StaleWindowIsDiscarded(t *testing.T) {
	f := newGatedFetcher()
	n := newNavigator(t, f)
	w1 := n.Window()
	w2 := w1.Shift(ShiftDays)
	f.results[w1.Signature()] = Result{Properties: []availability.Property{{ID: "from-w1"}}}
	f.results[w2.Signature()] = Result{Properties: []availability.Property{{ID: "from-w2"}}}

	n.Refresh()
	require.NoError(t, n.Shift(1))

	f.release(w1.Signature())
	time.Sleep(20 * time.Millisecond)
	v := n.View()
	assert.True(t, v.Loading)
	assert.Equal(t, w2, v.Window)
	assert.Empty(t, v.Properties)

	f.release(w2.Signature())
	n.Wait()
	v = n.View()
	assert.False(t, v.Loading)
	require.Len(t, v.Properties, 1)
	assert.Equal(t, availability.PropertyID("from-w2"), v.Properties[0].ID)
}

func TestFetch_ErrorClearsGrid(t *testing.T) {
	boom := errors.New("connection refused")
	n := newNavigator(t, FetcherFunc(func(context.Context, Query) (Result, error) { return Result{}, boom }))

	n.Refresh()
	n.Wait()

	v := n.View()
	var fetchErr *FetchError
	require.ErrorAs(t, v.Err, &fetchErr)
	assert.ErrorIs(t, v.Err, boom)
	assert.Equal(t, n.Window(), fetchErr.Window)
	assert.Nil(t, v.Grid)
	assert.False(t, v.Loading)
}

func TestOnChange_SeesLoadingThenLoaded(t *testing.T) {
	var mu sync.Mutex
	var seen []bool
	n, err := New(Options{
		Fetcher: immediate(Result{}),
		Engine:  engine.New(availability.FixedClock{At: today}),
		OnChange: func(v View) {
			mu.Lock()
			seen = append(seen, v.Loading)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	n.Refresh()
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, seen)
}

func TestStaleWindowError(t *testing.T) {
	err := &StaleWindowError{Requested: "2025-03-01/7", Current: "2025-03-08/7"}
	assert.ErrorIs(t, err, ErrStaleWindow)
	assert.Contains(t, err.Error(), "2025-03-08/7")
}
