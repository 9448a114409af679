package support

import (
	"context"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit in ctx or opens a read-only one. cleanup
// is nil when nothing was opened.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// WriteUnit is a unit a handler either borrowed from the Transaction
// middleware or opened itself.
type WriteUnit struct {
	uow.UnitOfWork
	managed   bool
	committed bool
}

// BeginWriteUnit reuses the unit in ctx or opens one that the handler must
// Commit; Close rolls back an owned unit that was not committed.
func BeginWriteUnit(ctx context.Context, factory uow.UoWFactory) (*WriteUnit, context.Context, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &WriteUnit{UnitOfWork: unit}, ctx, nil
	}
	if factory == nil {
		return nil, ctx, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, err
	}
	return &WriteUnit{UnitOfWork: unit, managed: true}, uow.Bind(ctx, unit), nil
}

// Commit is a no-op for borrowed units; the middleware commits those.
func (w *WriteUnit) Commit(ctx context.Context) error {
	if !w.managed || w.committed {
		return nil
	}
	if err := w.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	w.committed = true
	return nil
}

func (w *WriteUnit) Close(ctx context.Context) {
	if w.managed && !w.committed {
		_ = w.UnitOfWork.Rollback(ctx)
	}
}
