package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/support"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

const getGridKey = "availability.grid"

// GetGridQuery projects a window into calendar rows. Today overrides the
// engine clock for the highlighted column.
type GetGridQuery struct {
	WindowParams
	Filter domainavailability.PropertyFilter
	Status string
	Today  time.Time
}

func (q GetGridQuery) Key() string { return getGridKey }

func (q GetGridQuery) Validate() error {
	if _, err := q.Window(); err != nil {
		return err
	}
	if _, err := grid.ParseStatusFilter(q.Status); err != nil {
		return &domainavailability.ValidationError{Field: "status", Reason: err.Error()}
	}
	return nil
}

// CacheKey is empty without an explicit today, since the projection then
// depends on the clock.
func (q GetGridQuery) CacheKey() string {
	if q.Today.IsZero() {
		return ""
	}
	return q.cacheKey() + "|" + filterKey(q.Filter) + "|" + q.Status + "|" + daterange.Format(q.Today)
}

func (q GetGridQuery) ResultPrototype() any { return &dto.Grid{} }

type GetGridHandler struct {
	UoWFactory uow.UoWFactory
	Engine     engine.AvailabilityEngine
	Logger     *slog.Logger
}

func (h *GetGridHandler) Handle(ctx context.Context, q GetGridQuery) (dto.Grid, error) {
	w, err := q.Window()
	if err != nil {
		return dto.Grid{}, err
	}
	status, err := grid.ParseStatusFilter(q.Status)
	if err != nil {
		return dto.Grid{}, &domainavailability.ValidationError{Field: "status", Reason: err.Error()}
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Grid{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	data, err := loadWindow(ctx, unit, w, q.Filter)
	if err != nil {
		return dto.Grid{}, err
	}
	eng := h.engine()
	idx := eng.BuildIndex(data.intervals)
	var projected grid.Grid
	if q.Today.IsZero() {
		projected = eng.Project(w, data.properties, idx, status)
	} else {
		projected = grid.Project(w, data.properties, idx, status, q.Today)
	}
	if h.Logger != nil {
		h.Logger.Debug("availability grid projected",
			"window", w.String(),
			"filter", string(status),
			"rows", len(projected.Rows),
			"bars", projected.BarCount())
	}
	out := dto.MapGrid(projected)
	out.Cities = data.cities
	return out, nil
}

func (h *GetGridHandler) engine() engine.AvailabilityEngine {
	if h.Engine != nil {
		return h.Engine
	}
	return engine.New(nil)
}

var _ queries.Handler[GetGridQuery, dto.Grid] = (*GetGridHandler)(nil)
var _ middleware.CacheableQuery = GetGridQuery{}
