package availability

import (
	"context"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// WindowQuery selects the intervals whose range overlaps Range.
type WindowQuery struct {
	CompanyID        string
	PropertyID       PropertyID
	Range            daterange.DateRange
	IncludeCancelled bool
}

// Matches applies the query to one interval. A zero Range matches any range.
func (q WindowQuery) Matches(iv Interval) bool {
	if q.CompanyID != "" && iv.CompanyID != "" && iv.CompanyID != q.CompanyID {
		return false
	}
	if q.PropertyID != "" && iv.PropertyID != q.PropertyID {
		return false
	}
	if !q.IncludeCancelled && !iv.Active() {
		return false
	}
	return q.Range.IsZero() || iv.Range.Overlaps(q.Range)
}

// SortIntervals orders by start, then kind and id.
func SortIntervals(items []Interval) { sortByStart(items) }

type Repository interface {
	Window(ctx context.Context, q WindowQuery) ([]Interval, error)
	ByRef(ctx context.Context, ref Ref) (*Interval, error)
	Save(ctx context.Context, iv *Interval) error
	Delete(ctx context.Context, ref Ref) error
}

type PropertyRepository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	List(ctx context.Context, filter PropertyFilter) ([]Property, error)
	Save(ctx context.Context, p *Property) error
}

// Clock is the injected time source; the engine never reads time.Now itself.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today is the clock's current calendar date.
func Today(c Clock) time.Time {
	if c == nil {
		c = SystemClock{}
	}
	return daterange.Day(c.Now())
}
