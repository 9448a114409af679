package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnly             = errors.New("memory: unit of work is read-only")
	ErrUnitClosed           = errors.New("memory: unit of work already closed")
)

// Factory opens units of work over a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:        f.Store,
		readOnly:     opts.ReadOnly,
		saves:        make(map[domainavailability.Ref]domainavailability.Interval),
		deletes:      make(map[domainavailability.Ref]struct{}),
		baseVersions: make(map[domainavailability.Ref]int64),
		props:        make(map[domainavailability.PropertyID]domainavailability.Property),
		held:         make(map[domainavailability.PropertyID]func()),
	}, nil
}

// Unit stages writes until Commit. Property locks are held until Commit or
// Rollback.
type Unit struct {
	store    *Store
	readOnly bool

	mu           sync.Mutex
	saves        map[domainavailability.Ref]domainavailability.Interval
	deletes      map[domainavailability.Ref]struct{}
	baseVersions map[domainavailability.Ref]int64
	props        map[domainavailability.PropertyID]domainavailability.Property
	held         map[domainavailability.PropertyID]func()
	afterCommit  []func()
	closed       bool
}

func (u *Unit) Intervals() domainavailability.Repository {
	return intervalRepository{unit: u}
}

func (u *Unit) Properties() domainavailability.PropertyRepository {
	return propertyRepository{unit: u}
}

func (u *Unit) LockProperty(ctx context.Context, id domainavailability.PropertyID) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	if _, ok := u.held[id]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	release, err := u.store.lock(ctx, id)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.held[id] = release
	return nil
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnly
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	return nil
}

// Commit applies staged writes atomically. Nothing is applied when any
// interval changed since it was read.
func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	defer u.release()

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, base := range u.baseVersions {
		current, ok := s.intervals[ref]
		switch {
		case !ok && base != 0:
			return domainavailability.ErrIntervalNotFound
		case ok && current.Version != base:
			return domainavailability.ErrConcurrentUpdate
		}
	}
	for ref := range u.deletes {
		delete(s.intervals, ref)
	}
	for ref, iv := range u.saves {
		s.intervals[ref] = iv
	}
	for id, p := range u.props {
		s.properties[id] = p
	}
	for _, fn := range u.afterCommit {
		fn()
	}
	return nil
}

// onCommit defers fn until the unit commits; a rollback drops it.
func (u *Unit) onCommit(fn func()) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	u.afterCommit = append(u.afterCommit, fn)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.release()
	return nil
}

// release drops staged state and property locks. Callers hold u.mu.
func (u *Unit) release() {
	u.closed = true
	for id, unlock := range u.held {
		unlock()
		delete(u.held, id)
	}
	clear(u.saves)
	clear(u.deletes)
	clear(u.baseVersions)
	clear(u.props)
	u.afterCommit = nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
