package availability

import (
	"context"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/support"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
)

const deleteIntervalKey = "availability.interval.delete"

type DeleteIntervalCommand struct {
	CompanyID       string
	Kind            string
	ID              string
	IdempotencyKeyV string
}

func (c DeleteIntervalCommand) Key() string { return deleteIntervalKey }

func (c DeleteIntervalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c DeleteIntervalCommand) ResultPrototype() any { return &dto.DeleteResult{} }

func (c DeleteIntervalCommand) Validate() error {
	_, err := parseRef(c.Kind, c.ID)
	return err
}

type DeleteIntervalHandler struct {
	WriteDeps
}

func (h *DeleteIntervalHandler) Handle(ctx context.Context, cmd DeleteIntervalCommand) (*dto.DeleteResult, error) {
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
	iv.MarkDeleted(h.now())
	if err := unit.Intervals().Delete(ctx, ref); err != nil {
		return nil, err
	}
	if err := h.publish(ctx, iv); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("interval deleted", "ref", ref.String(), "property_id", iv.PropertyID)
	}
	return &dto.DeleteResult{Kind: string(ref.Kind), ID: string(ref.ID), Deleted: true}, nil
}

var _ commands.Handler[DeleteIntervalCommand, *dto.DeleteResult] = (*DeleteIntervalHandler)(nil)
var _ middleware.IdempotentCommand = DeleteIntervalCommand{}
