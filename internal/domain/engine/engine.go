// Package engine bundles the pure availability operations behind one
// interface so callers can hold a single dependency with an injected clock.
package engine

import (
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
)

type AvailabilityEngine interface {
	BuildIndex(intervals []availability.Interval) *availability.Index
	Validate(candidate availability.Interval, existing []availability.Interval, exclude availability.Ref) error
	Project(w grid.Window, properties []availability.Property, idx *availability.Index, filter grid.StatusFilter) grid.Grid
	Today() time.Time
}

type Engine struct {
	clock availability.Clock
}

func New(clock availability.Clock) *Engine {
	if clock == nil {
		clock = availability.SystemClock{}
	}
	return &Engine{clock: clock}
}

func (e *Engine) BuildIndex(intervals []availability.Interval) *availability.Index {
	return availability.BuildIndex(intervals)
}

func (e *Engine) Validate(candidate availability.Interval, existing []availability.Interval, exclude availability.Ref) error {
	return availability.Validate(candidate, existing, exclude)
}

// Project marks today's column using the engine clock.
func (e *Engine) Project(w grid.Window, properties []availability.Property, idx *availability.Index, filter grid.StatusFilter) grid.Grid {
	return grid.Project(w, properties, idx, filter, e.Today())
}

func (e *Engine) Today() time.Time {
	return availability.Today(e.clock)
}

var _ AvailabilityEngine = (*Engine)(nil)
