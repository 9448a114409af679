package uow

import (
	"context"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

// UnitOfWork scopes repository access to one transaction.
type UnitOfWork interface {
	Intervals() availability.Repository
	Properties() availability.PropertyRepository

	// LockProperty serializes writers of one property until Commit or
	// Rollback. Callers must take it before the read that feeds the overlap
	// check.
	LockProperty(ctx context.Context, id availability.PropertyID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
