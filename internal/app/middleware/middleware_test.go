package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

type result struct {
	Value int `json:"value"`
}

type createThing struct {
	Value   int
	IdemKey string
	Bad     bool
}

func (createThing) Key() string { return "test.create" }
func (c createThing) IdempotencyKey() string { return c.IdemKey }
func (createThing) ResultPrototype() any { return &result{} }
func (c createThing) Validate() error {
	if c.Bad {
		return errors.New("bad")
	}
	return nil
}

type listThings struct {
	Filter string
}

func (listThings) Key() string { return "test.list" }
func (l listThings) CacheKey() string { return l.Filter }
func (listThings) ResultPrototype() any { return &result{} }

type memStore struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (s *memStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	return rec, ok, nil
}

func (s *memStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recs == nil {
		s.recs = map[string]IdempotencyRecord{}
	}
	s.recs[rec.Key] = rec
	return nil
}

type memCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated int
}

func (c *memCache) Get(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (c *memCache) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.invalidated++
	return nil
}

type countingBox struct {
	added   []outbox.EventRecord
	flushes int
	err     error
}

func (b *countingBox) Add(_ context.Context, rec outbox.EventRecord) error {
	b.added = append(b.added, rec)
	return nil
}

func (b *countingBox) Flush(context.Context) error {
	b.flushes++
	return b.err
}

func commandBus(calls *int, fail bool) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[createThing, result](bus, createThing{}.Key(),
		commands.HandlerFunc[createThing, result](func(_ context.Context, cmd createThing) (result, error) {
			*calls++
			if fail {
				return result{}, errors.New("boom")
			}
			return result{Value: cmd.Value + *calls}, nil
		}))
	return bus
}

func TestIdempotency_ReplaysStoredSuccess(t *testing.T) {
	calls := 0
	store := &memStore{}
	fixed := func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	bus := ChainCommands(commandBus(&calls, false), Idempotency(store, nil, fixed, nil))
	ctx := context.Background()

	first, err := commands.Dispatch[createThing, result](ctx, bus, createThing{Value: 10, IdemKey: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[createThing, result](ctx, bus, createThing{Value: 10, IdemKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	rec, ok, _ := store.Get(ctx, "test.create:k1")
	require.True(t, ok)
	assert.Equal(t, fixed(), rec.OccurredAt)

	_, err = commands.Dispatch[createThing, result](ctx, bus, createThing{Value: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "commands without a key always run")
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	calls := 0
	store := &memStore{}
	bus := ChainCommands(commandBus(&calls, true), Idempotency(store, nil, nil, nil))

	for range 2 {
		_, err := bus.Dispatch(context.Background(), createThing{IdemKey: "k"})
		require.Error(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.recs)
}

func TestValidation_StopsBeforeHandler(t *testing.T) {
	calls := 0
	bus := ChainCommands(commandBus(&calls, false), Validation())

	_, err := bus.Dispatch(context.Background(), createThing{Bad: true})
	require.EqualError(t, err, "bad")
	assert.Zero(t, calls)
}

func TestOutboxFlush_OnlyAfterSuccess(t *testing.T) {
	calls := 0
	box := &countingBox{}
	bus := ChainCommands(commandBus(&calls, false), OutboxFlush(box, nil))
	_, err := bus.Dispatch(context.Background(), createThing{})
	require.NoError(t, err)
	assert.Equal(t, 1, box.flushes)

	failing := ChainCommands(commandBus(&calls, true), OutboxFlush(box, nil))
	_, err = failing.Dispatch(context.Background(), createThing{})
	require.Error(t, err)
	assert.Equal(t, 1, box.flushes)

	box.err = errors.New("broker down")
	_, err = bus.Dispatch(context.Background(), createThing{})
	assert.NoError(t, err, "a committed write survives a flush failure")
}

func TestQueryCaching_HitsAndInvalidation(t *testing.T) {
	asks := 0
	qbus := queries.NewInMemoryBus()
	queries.RegisterHandler[listThings, result](qbus, listThings{}.Key(),
		queries.HandlerFunc[listThings, result](func(context.Context, listThings) (result, error) {
			asks++
			return result{Value: asks}, nil
		}))
	cache := &memCache{}
	bus := ChainQueries(qbus, QueryCaching(cache, nil))
	ctx := context.Background()

	a, err := queries.Ask[listThings, result](ctx, bus, listThings{Filter: "x"})
	require.NoError(t, err)
	b, err := queries.Ask[listThings, result](ctx, bus, listThings{Filter: "x"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, asks)

	_, err = queries.Ask[listThings, result](ctx, bus, listThings{Filter: "y"})
	require.NoError(t, err)
	assert.Equal(t, 2, asks, "different key misses")

	calls := 0
	cbus := ChainCommands(commandBus(&calls, false), CacheInvalidation(cache, nil))
	_, err = cbus.Dispatch(ctx, createThing{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	c, err := queries.Ask[listThings, result](ctx, bus, listThings{Filter: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Value)
}

func TestChain_FirstMiddlewareIsOutermost(t *testing.T) {
	var order []string
	mark := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			nextFn := wrapCommand(next)
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return nextFn(ctx, cmd)
			})
		}
	}
	calls := 0
	bus := ChainCommands(commandBus(&calls, false), mark("a"), nil, mark("b"))
	_, err := bus.Dispatch(context.Background(), createThing{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

type countingUnit struct {
	uow.UnitOfWork
	factory *countingFactory
}

func (u countingUnit) Commit(context.Context) error {
	u.factory.commits++
	return nil
}

func (u countingUnit) Rollback(context.Context) error {
	u.factory.rollbacks++
	return nil
}

type countingFactory struct {
	begins, commits, rollbacks int
}

func (f *countingFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	f.begins++
	return countingUnit{factory: f}, nil
}

func TestRetryingTransaction_RerunsLostRaces(t *testing.T) {
	failures := 2
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[createThing, result](bus, createThing{}.Key(),
		commands.HandlerFunc[createThing, result](func(ctx context.Context, cmd createThing) (result, error) {
			_, ok := uow.FromContext(ctx)
			require.True(t, ok, "unit bound to the handler context")
			if failures > 0 {
				failures--
				return result{}, availability.ErrConcurrentUpdate
			}
			return result{Value: 1}, nil
		}))

	factory := &countingFactory{}
	res, err := commands.Dispatch[createThing, result](context.Background(), ChainCommands(bus, RetryingTransaction(factory, nil, 3)), createThing{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Value)
	assert.Equal(t, 3, factory.begins)
	assert.Equal(t, 2, factory.rollbacks)
	assert.Equal(t, 1, factory.commits)
}

func TestTransaction_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	factory := &countingFactory{}
	_, err := ChainCommands(commandBus(&calls, true), RetryingTransaction(factory, nil, 3)).Dispatch(context.Background(), createThing{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, factory.rollbacks)
	assert.Zero(t, factory.commits)

	failures := 0
	lost := commands.NewInMemoryBus()
	commands.RegisterHandler[createThing, result](lost, createThing{}.Key(),
		commands.HandlerFunc[createThing, result](func(context.Context, createThing) (result, error) {
			failures++
			return result{}, availability.ErrConcurrentUpdate
		}))
	_, err = ChainCommands(lost, Transaction(factory, nil)).Dispatch(context.Background(), createThing{})
	assert.ErrorIs(t, err, availability.ErrConcurrentUpdate)
	assert.Equal(t, 1, failures, "plain Transaction runs once")
}
