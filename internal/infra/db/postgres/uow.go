package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

// Factory opens one SQL transaction per unit of work.
type Factory struct {
	DB *sql.DB
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx, err := f.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	tx       *sql.Tx
	readOnly bool
}

func (u *Unit) Intervals() domainavailability.Repository {
	return IntervalRepository{q: u.tx}
}

func (u *Unit) Properties() domainavailability.PropertyRepository {
	return PropertyRepository{q: u.tx}
}

// LockProperty takes a transaction-scoped advisory lock keyed by the property
// id. Postgres releases it on commit or rollback.
func (u *Unit) LockProperty(ctx context.Context, id domainavailability.PropertyID) error {
	if u.readOnly {
		return errors.New("postgres: cannot lock a property in a read-only unit")
	}
	if _, err := u.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "property:"+string(id)); err != nil {
		return asConcurrentUpdate(err)
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if err := u.tx.Commit(); err != nil {
		return asConcurrentUpdate(err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// InjectContext makes the transaction visible to the outbox and idempotency
// stores.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
var _ uow.ContextInjector = (*Unit)(nil)
