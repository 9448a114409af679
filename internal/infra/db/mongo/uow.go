package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a session. Writable units also start a transaction; read-only
// units read with the session's causal consistency only.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	unit := &Unit{
		db:         f.DB,
		session:    session,
		readOnly:   opts.ReadOnly,
		intervals:  NewIntervalRepository(f.DB),
		properties: NewPropertyRepository(f.DB),
	}
	if opts.ReadOnly {
		return unit, nil
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return unit, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool

	intervals  *IntervalRepository
	properties *PropertyRepository
}

func (u *Unit) Intervals() domainavailability.Repository {
	return u.intervals
}

func (u *Unit) Properties() domainavailability.PropertyRepository {
	return u.properties
}

// LockProperty bumps the property's lock document inside the transaction.
// A second transaction touching the same document hits a write conflict,
// which surfaces as ErrConcurrentUpdate.
func (u *Unit) LockProperty(ctx context.Context, id domainavailability.PropertyID) error {
	if u.readOnly {
		return errors.New("mongo: cannot lock a property in a read-only unit")
	}
	ctx = mongo.NewSessionContext(ctx, u.session)
	_, err := u.db.Collection(propertyLocksCollection).UpdateByID(ctx, string(id),
		bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"locked_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(domainavailability.ErrConcurrentUpdate, err)
		}
		return asConcurrentUpdate(err)
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	if err := u.session.CommitTransaction(ctx); err != nil {
		return asConcurrentUpdate(err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
var _ uow.ContextInjector = (*Unit)(nil)
