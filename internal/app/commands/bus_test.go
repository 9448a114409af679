package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ n int }

func (ping) Key() string { return "test.ping" }

type other struct{}

func (other) Key() string { return "test.other" }

func TestDispatch_TypedRoundTrip(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[ping, int](bus, ping{}.Key(), HandlerFunc[ping, int](func(_ context.Context, cmd ping) (int, error) {
		return cmd.n * 2, nil
	}))

	got, err := Dispatch[ping, int](context.Background(), bus, ping{n: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Dispatch[ping, string](context.Background(), bus, ping{n: 1})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[other, int](context.Background(), bus, other{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[ping, int](context.Background(), nil, ping{})
	assert.ErrorIs(t, err, ErrNilBus)
	assert.Equal(t, []string{"test.ping"}, bus.Keys())
}

func TestRegisterRaw_PanicsOnDuplicate(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[ping, int](func(context.Context, ping) (int, error) { return 0, nil })
	RegisterHandler[ping, int](bus, "dup", h)
	assert.Panics(t, func() { RegisterHandler[ping, int](bus, "dup", h) })
	assert.Panics(t, func() { RegisterHandler[ping, int](bus, "", h) })
}
