package middleware

import (
	"context"
	"errors"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs each command in a single unit of work, committing only when
// the handler succeeds.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	return RetryingTransaction(factory, optsProvider, 1)
}

// RetryingTransaction is Transaction that runs the command again in a fresh
// unit, up to attempts times in total, when it fails with
// ErrConcurrentUpdate. A retry re-reads the property, so it either succeeds
// or reports the real conflict.
func RetryingTransaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, attempts int) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	attempts = max(attempts, 1)
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var (
				res any
				err error
			)
			for range attempts {
				res, err = runInUnit(ctx, factory, opts, func(execCtx context.Context) (any, error) {
					return nextFn(execCtx, cmd)
				})
				if !errors.Is(err, availability.ErrConcurrentUpdate) || ctx.Err() != nil {
					break
				}
			}
			return res, err
		})
	}
}

// runInUnit commits after fn succeeds and rolls back otherwise. Property locks
// taken by fn are released by either.
func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, fn func(context.Context) (any, error)) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	res, err := fn(execCtx)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}
