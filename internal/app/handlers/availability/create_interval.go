package availability

import (
	"context"
	"strings"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/support"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

const createIntervalKey = "availability.interval.create"

type CreateIntervalCommand struct {
	CompanyID       string
	Input           IntervalInput
	IdempotencyKeyV string
}

func (c CreateIntervalCommand) Key() string { return createIntervalKey }

func (c CreateIntervalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateIntervalCommand) ResultPrototype() any { return &dto.IntervalResult{} }

func (c CreateIntervalCommand) Validate() error { return c.Input.Validate() }

// CreateIntervalHandler writes a new reservation or block. The property lock
// is taken before the read that feeds the overlap check, so two creations on
// one property never both pass.
type CreateIntervalHandler struct {
	WriteDeps
	NewID func() domainavailability.IntervalID
}

func (h *CreateIntervalHandler) Handle(ctx context.Context, cmd CreateIntervalCommand) (*dto.IntervalResult, error) {
	newID := h.NewID
	if newID == nil {
		newID = newIntervalID
	}
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close(ctx)

	propertyID := domainavailability.PropertyID(strings.TrimSpace(cmd.Input.PropertyID))
	prop, err := candidateProperty(ctx, unit, cmd.CompanyID, propertyID)
	if err != nil {
		return nil, err
	}
	companyID := cmd.CompanyID
	if companyID == "" {
		companyID = prop.CompanyID
	}
	iv, err := cmd.Input.build(newID(), companyID, h.now())
	if err != nil {
		return nil, err
	}
	if err := unit.LockProperty(ctx, prop.ID); err != nil {
		return nil, err
	}
	if err := h.checkStored(ctx, unit, iv.Snapshot(), domainavailability.Ref{}); err != nil {
		return nil, err
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
		h.Logger.Info("interval created", "ref", iv.Ref().String(), "property_id", iv.PropertyID, "range", iv.Range.String())
	}
	return &dto.IntervalResult{Interval: dto.MapInterval(*iv)}, nil
}

var _ commands.Handler[CreateIntervalCommand, *dto.IntervalResult] = (*CreateIntervalHandler)(nil)
var _ middleware.IdempotentCommand = CreateIntervalCommand{}
