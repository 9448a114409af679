package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

const (
	ShiftDays        = 7
	TodayLookback    = 3
	MinCustomDays    = 8
	DefaultDayCount  = 15
	DefaultFetchWait = 15 * time.Second
)

// FixedPeriods are the preset window lengths offered next to the custom range.
var FixedPeriods = []int{7, 14, 21, 30, 60}

// Query is what the navigator asks the backend for on every transition.
type Query struct {
	Window grid.Window
	Filter availability.PropertyFilter
	Status grid.StatusFilter
}

type Result struct {
	Properties []availability.Property
	Intervals  []availability.Interval
}

// Fetcher loads the properties and intervals of one window.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Result, error)
}

type FetcherFunc func(ctx context.Context, q Query) (Result, error)

func (f FetcherFunc) Fetch(ctx context.Context, q Query) (Result, error) { return f(ctx, q) }

// View is a consistent snapshot of what should be rendered.
type View struct {
	Window     grid.Window
	Filter     availability.PropertyFilter
	Status     grid.StatusFilter
	Generation uint64
	Loading    bool
	Err        error
	Properties []availability.Property
	Intervals  []availability.Interval
	Cities     []string
	Grid       *grid.Grid
}

type Options struct {
	Fetcher  Fetcher
	Engine   engine.AvailabilityEngine
	Logger   *slog.Logger
	DayCount int
	Timeout  time.Duration
	// OnChange is called outside the lock after every view update.
	OnChange func(View)
}

// Navigator owns the visible window and its filters. Every transition bumps
// the generation and starts a fetch; only the fetch of the current
// generation may update the view.
type Navigator struct {
	fetcher  Fetcher
	engine   engine.AvailabilityEngine
	logger   *slog.Logger
	timeout  time.Duration
	onChange func(View)

	mu         sync.Mutex
	window     grid.Window
	filter     availability.PropertyFilter
	status     grid.StatusFilter
	generation uint64
	cancel     context.CancelFunc
	view       View
	index      *availability.Index

	inflight sync.WaitGroup

	notifyMu sync.Mutex
	notified uint64
}

// New builds a navigator whose window starts TodayLookback days before
// today. No fetch happens until the first transition or Refresh.
func New(opts Options) (*Navigator, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("navigator: fetcher is required")
	}
	eng := opts.Engine
	if eng == nil {
		eng = engine.New(nil)
	}
	days := opts.DayCount
	if days <= 0 {
		days = DefaultDayCount
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchWait
	}
	w, err := grid.NewWindow(daterange.AddDays(eng.Today(), -TodayLookback), days)
	if err != nil {
		return nil, err
	}
	n := &Navigator{
		fetcher:  opts.Fetcher,
		engine:   eng,
		logger:   opts.Logger,
		timeout:  timeout,
		onChange: opts.OnChange,
		window:   w,
		status:   grid.FilterAll,
	}
	n.view = View{Window: w, Status: grid.FilterAll}
	return n, nil
}

func (n *Navigator) Window() grid.Window {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.window
}

func (n *Navigator) View() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

// Shift moves the window a week forward (+1) or back (-1).
func (n *Navigator) Shift(direction int) error {
	if direction != 1 && direction != -1 {
		return ErrInvalidDirection
	}
	n.transition(func() { n.window = n.window.Shift(ShiftDays * direction) })
	return nil
}

// JumpToday places today a few columns in from the left edge.
func (n *Navigator) JumpToday() {
	start := daterange.AddDays(n.engine.Today(), -TodayLookback)
	n.transition(func() { n.window.Start = start })
}

// SetFixedPeriod changes the day count and keeps the start.
func (n *Navigator) SetFixedPeriod(days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: %d days", ErrInvalidPeriod, days)
	}
	n.transition(func() { n.window.Days = days })
	return nil
}

// SetCustomRange starts the window at start and shows at least MinCustomDays.
func (n *Navigator) SetCustomRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidPeriod)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end before start", ErrInvalidPeriod)
	}
	days := max(MinCustomDays, daterange.DaysApart(start, end)+1)
	n.transition(func() {
		n.window = grid.Window{Start: daterange.Day(start), Days: days}
	})
	return nil
}

func (n *Navigator) SetStatusFilter(f grid.StatusFilter) {
	if f == "" {
		f = grid.FilterAll
	}
	n.transition(func() { n.status = f })
}

func (n *Navigator) SetPropertyFilter(f availability.PropertyFilter) {
	n.transition(func() { n.filter = f.Normalized() })
}

// Refresh re-fetches the current window.
func (n *Navigator) Refresh() {
	n.transition(func() {})
}

// PreCheck runs the overlap validator against the loaded window. It is early
// feedback only; the write path repeats the check authoritatively.
func (n *Navigator) PreCheck(candidate availability.Interval, exclude availability.Ref) error {
	n.mu.Lock()
	existing := n.view.Intervals
	n.mu.Unlock()
	return n.engine.Validate(candidate, existing, exclude)
}

// Wait blocks until every started fetch has returned.
func (n *Navigator) Wait() {
	n.inflight.Wait()
}

// Close cancels the in-flight fetch, if any, and waits for it.
func (n *Navigator) Close() {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.generation++
	n.mu.Unlock()
	n.inflight.Wait()
}

func (n *Navigator) transition(mutate func()) {
	n.mu.Lock()
	mutate()
	n.generation++
	gen := n.generation
	if n.cancel != nil {
		n.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	n.cancel = cancel
	q := Query{Window: n.window, Filter: n.filter, Status: n.status}
	n.index = nil
	n.view = View{
		Window:     n.window,
		Filter:     n.filter,
		Status:     n.status,
		Generation: gen,
		Loading:    true,
	}
	view := n.view
	n.inflight.Add(1)
	n.mu.Unlock()

	n.notify(view)
	go n.fetch(ctx, cancel, gen, q)
}

func (n *Navigator) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, q Query) {
	defer n.inflight.Done()
	defer cancel()

	res, err := n.fetcher.Fetch(ctx, q)

	n.mu.Lock()
	if gen != n.generation {
		current := n.window.Signature()
		n.mu.Unlock()
		if n.logger != nil {
			n.logger.Debug("discarding availability response",
				"error", &StaleWindowError{Requested: q.Window.Signature(), Current: current},
				"generation", gen,
			)
		}
		return
	}
	n.cancel = nil
	view := View{
		Window:     q.Window,
		Filter:     q.Filter,
		Status:     q.Status,
		Generation: gen,
	}
	if err != nil {
		view.Err = &FetchError{Window: q.Window, Err: err}
		n.index = nil
	} else {
		props := availability.FilterProperties(res.Properties, q.Filter)
		idx := n.engine.BuildIndex(res.Intervals)
		g := n.engine.Project(q.Window, props, idx, q.Status)
		view.Properties = props
		view.Intervals = res.Intervals
		view.Cities = availability.Cities(res.Properties)
		view.Grid = &g
		n.index = idx
	}
	n.view = view
	n.mu.Unlock()

	if err != nil && n.logger != nil {
		n.logger.Warn("availability fetch failed", "window", q.Window.Signature(), "error", err)
	}
	n.notify(view)
}

// notify delivers views in generation order; a view older than the last one
// delivered is skipped.
func (n *Navigator) notify(v View) {
	if n.onChange == nil {
		return
	}
	n.notifyMu.Lock()
	defer n.notifyMu.Unlock()
	if v.Generation < n.notified {
		return
	}
	n.notified = v.Generation
	n.onChange(v)
}

// OccupiedOn answers from the loaded window's index.
func (n *Navigator) OccupiedOn(id availability.PropertyID, day time.Time) (availability.Interval, bool) {
	n.mu.Lock()
	idx := n.index
	n.mu.Unlock()
	if idx == nil {
		return availability.Interval{}, false
	}
	return idx.OccupiedOn(id, day)
}
