package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// MaxWindowDays bounds a single read.
const MaxWindowDays = 366

// WindowParams selects the visible days. End is the last visible day; Days
// wins when both are set.
type WindowParams struct {
	Start time.Time
	End   time.Time
	Days  int
}

func (p WindowParams) Window() (grid.Window, error) {
	if p.Start.IsZero() {
		return grid.Window{}, &domainavailability.ValidationError{Field: "start", Reason: "required"}
	}
	var (
		w   grid.Window
		err error
	)
	switch {
	case p.Days > 0:
		w, err = grid.NewWindow(p.Start, p.Days)
	case !p.End.IsZero():
		if daterange.Day(p.End).Before(daterange.Day(p.Start)) {
			return grid.Window{}, &domainavailability.ValidationError{Field: "end", Reason: "must not be before start"}
		}
		w, err = grid.WindowBetween(p.Start, p.End)
	default:
		return grid.Window{}, &domainavailability.ValidationError{Field: "end", Reason: "end or days required"}
	}
	if err != nil {
		return grid.Window{}, &domainavailability.ValidationError{Field: "window", Reason: err.Error()}
	}
	if w.Days > MaxWindowDays {
		return grid.Window{}, &domainavailability.ValidationError{Field: "window", Reason: fmt.Sprintf("at most %d days", MaxWindowDays)}
	}
	return w, nil
}

// cacheKey names the resolved window, so start+days and start+end asking for
// the same days share an entry.
func (p WindowParams) cacheKey() string {
	if w, err := p.Window(); err == nil {
		return w.Signature()
	}
	return daterange.Format(p.Start) + "|" + daterange.Format(p.End) + "|" + fmt.Sprint(p.Days)
}

func filterKey(f domainavailability.PropertyFilter) string {
	f = f.Normalized()
	return strings.Join([]string{f.CompanyID, string(f.PropertyID), strings.ToLower(f.City), f.Search}, "|")
}

type windowData struct {
	window     grid.Window
	properties []domainavailability.Property
	intervals  []domainavailability.Interval
	cities     []string
}

// loadWindow reads the company's properties, applies filter and returns the
// active intervals of the remaining properties that touch w. Cities come from
// the unfiltered list so the city selector keeps every option.
func loadWindow(ctx context.Context, unit uow.UnitOfWork, w grid.Window, filter domainavailability.PropertyFilter) (windowData, error) {
	filter = filter.Normalized()
	all, err := unit.Properties().List(ctx, domainavailability.PropertyFilter{CompanyID: filter.CompanyID})
	if err != nil {
		return windowData{}, fmt.Errorf("list properties: %w", err)
	}
	props := domainavailability.FilterProperties(all, filter)
	domainavailability.SortProperties(props)

	intervals, err := unit.Intervals().Window(ctx, domainavailability.WindowQuery{
		CompanyID:  filter.CompanyID,
		PropertyID: filter.PropertyID,
		Range:      w.Range(),
	})
	if err != nil {
		return windowData{}, fmt.Errorf("load intervals: %w", err)
	}
	visible := make(map[domainavailability.PropertyID]struct{}, len(props))
	for _, p := range props {
		visible[p.ID] = struct{}{}
	}
	kept := intervals[:0]
	for _, iv := range intervals {
		if _, ok := visible[iv.PropertyID]; ok && iv.Active() {
			kept = append(kept, iv)
		}
	}
	return windowData{
		window:     w,
		properties: props,
		intervals:  kept,
		cities:     domainavailability.Cities(all),
	}, nil
}
