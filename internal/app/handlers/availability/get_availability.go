package availability

import (
	"context"
	"log/slog"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/support"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

const getAvailabilityKey = "availability.window"

// GetAvailabilityQuery loads the property rows and active intervals of one
// window.
type GetAvailabilityQuery struct {
	WindowParams
	Filter domainavailability.PropertyFilter
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

func (q GetAvailabilityQuery) Validate() error {
	_, err := q.Window()
	return err
}

func (q GetAvailabilityQuery) CacheKey() string {
	return q.cacheKey() + "|" + filterKey(q.Filter)
}

func (q GetAvailabilityQuery) ResultPrototype() any { return &dto.Availability{} }

type GetAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	w, err := q.Window()
	if err != nil {
		return dto.Availability{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	data, err := loadWindow(ctx, unit, w, q.Filter)
	if err != nil {
		return dto.Availability{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("availability window loaded",
			"window", w.String(),
			"company_id", q.Filter.CompanyID,
			"properties", len(data.properties),
			"intervals", len(data.intervals))
	}
	return dto.Availability{
		Window:     dto.MapWindow(w),
		Properties: dto.MapProperties(data.properties),
		Intervals:  dto.MapIntervals(data.intervals),
		Cities:     data.cities,
	}, nil
}

var _ queries.Handler[GetAvailabilityQuery, dto.Availability] = (*GetAvailabilityHandler)(nil)
var _ middleware.CacheableQuery = GetAvailabilityQuery{}
