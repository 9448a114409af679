package availability

import (
	"context"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/support"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
)

const checkIntervalKey = "availability.check"

// CheckIntervalQuery asks whether a candidate would be accepted right now.
// The answer is advisory; writes re-check under the property lock.
type CheckIntervalQuery struct {
	CompanyID   string
	Input       IntervalInput
	ExcludeKind string
	ExcludeID   string
}

func (q CheckIntervalQuery) Key() string { return checkIntervalKey }

func (q CheckIntervalQuery) Validate() error {
	if err := q.Input.Validate(); err != nil {
		return err
	}
	if q.ExcludeID != "" {
		if _, err := parseRef(q.ExcludeKind, q.ExcludeID); err != nil {
			return err
		}
	}
	return nil
}

type CheckIntervalHandler struct {
	UoWFactory uow.UoWFactory
	Engine     engine.AvailabilityEngine
}

func (h *CheckIntervalHandler) Handle(ctx context.Context, q CheckIntervalQuery) (dto.CheckResult, error) {
	candidate, err := q.Input.build("candidate", q.CompanyID, time.Time{})
	if err != nil {
		return dto.CheckResult{}, err
	}
	var exclude domainavailability.Ref
	if q.ExcludeID != "" {
		if exclude, err = parseRef(q.ExcludeKind, q.ExcludeID); err != nil {
			return dto.CheckResult{}, err
		}
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CheckResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if _, err := candidateProperty(ctx, unit, q.CompanyID, candidate.PropertyID); err != nil {
		return dto.CheckResult{}, err
	}

	existing, err := unit.Intervals().Window(ctx, domainavailability.WindowQuery{
		PropertyID: candidate.PropertyID,
		Range:      candidate.Range,
	})
	if err != nil {
		return dto.CheckResult{}, err
	}
	eng := h.Engine
	if eng == nil {
		eng = engine.New(nil)
	}
	err = eng.Validate(*candidate, existing, exclude)
	if conflict, ok := domainavailability.AsConflict(err); ok {
		return dto.CheckResult{OK: false, Conflict: dto.MapConflict(conflict)}, nil
	}
	if err != nil {
		return dto.CheckResult{}, err
	}
	return dto.CheckResult{OK: true}, nil
}

var _ queries.Handler[CheckIntervalQuery, dto.CheckResult] = (*CheckIntervalHandler)(nil)
