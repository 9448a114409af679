package availability

import (
	"context"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/support"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

const editIntervalKey = "availability.interval.edit"

// EditIntervalCommand patches an interval. Nil fields keep their value.
// ExpectedVersion, when set, must match the stored version.
type EditIntervalCommand struct {
	CompanyID       string
	Kind            string
	ID              string
	Start           *time.Time
	End             *time.Time
	Status          *string
	Details         domainavailability.Details
	ExpectedVersion int64
	IdempotencyKeyV string
}

func (c EditIntervalCommand) Key() string { return editIntervalKey }

func (c EditIntervalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c EditIntervalCommand) ResultPrototype() any { return &dto.IntervalResult{} }

func (c EditIntervalCommand) Validate() error {
	if _, err := parseRef(c.Kind, c.ID); err != nil {
		return err
	}
	if c.Start != nil && c.Start.IsZero() {
		return &domainavailability.ValidationError{Field: "start", Reason: "required"}
	}
	if c.End != nil && c.End.IsZero() {
		return &domainavailability.ValidationError{Field: "end", Reason: "required"}
	}
	if c.Status != nil {
		if _, err := domainavailability.ParseStatus(*c.Status); err != nil {
			return err
		}
	}
	if c.Start == nil && c.End == nil && c.Status == nil && c.Details.IsZero() {
		return &domainavailability.ValidationError{Field: "patch", Reason: "nothing to change"}
	}
	return nil
}

// EditIntervalHandler applies a patch. The edited interval is excluded from
// its own overlap check by kind and id.
type EditIntervalHandler struct {
	WriteDeps
}

func (h *EditIntervalHandler) Handle(ctx context.Context, cmd EditIntervalCommand) (*dto.IntervalResult, error) {
	ref, err := parseRef(cmd.Kind, cmd.ID)
	if err != nil {
		return nil, err
	}
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close(ctx)

	iv, err := lockedInterval(ctx, unit, cmd.CompanyID, ref)
	if err != nil {
		return nil, err
	}
	if cmd.ExpectedVersion > 0 && cmd.ExpectedVersion != iv.Version {
		return nil, domainavailability.ErrConcurrentUpdate
	}

	now := h.now()
	before := iv.Snapshot()
	if cmd.Start != nil || cmd.End != nil {
		next := iv.Range
		if cmd.Start != nil {
			next.Start = daterange.Day(*cmd.Start)
		}
		if cmd.End != nil {
			next.End = daterange.Day(*cmd.End)
		}
		if err := iv.Reschedule(next, now); err != nil {
			return nil, err
		}
	}
	if cmd.Status != nil {
		status, err := domainavailability.ParseStatus(*cmd.Status)
		if err != nil {
			return nil, err
		}
		if err := iv.Transition(status, now); err != nil {
			return nil, err
		}
	}
	if err := iv.Amend(cmd.Details, now); err != nil {
		return nil, err
	}
	if len(iv.PendingEvents()) == 0 {
		return &dto.IntervalResult{Interval: dto.MapInterval(iv.Snapshot())}, nil
	}

	if !iv.Range.Start.Equal(before.Range.Start) || !iv.Range.End.Equal(before.Range.End) {
		if err := h.checkStored(ctx, unit, iv.Snapshot(), ref); err != nil {
			return nil, err
		}
	}
	if err := unit.Intervals().Save(ctx, iv); err != nil {
		return nil, err
	}
	if err := h.publish(ctx, iv); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("interval edited", "ref", ref.String(), "property_id", iv.PropertyID, "range", iv.Range.String(), "status", iv.Status)
	}
	return &dto.IntervalResult{Interval: dto.MapInterval(iv.Snapshot())}, nil
}

var _ commands.Handler[EditIntervalCommand, *dto.IntervalResult] = (*EditIntervalHandler)(nil)
var _ middleware.IdempotentCommand = EditIntervalCommand{}
