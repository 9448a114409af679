package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Names []string `json:"names"`
}

func TestMemory_HitReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	require.NoError(t, c.Set(ctx, "k", payload{Names: []string{"a"}}))

	var first payload
	ok, err := c.Get(ctx, "k", &first)
	require.NoError(t, err)
	require.True(t, ok)
	first.Names[0] = "mutated"

	var second payload
	ok, err = c.Get(ctx, "k", &second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, second.Names)
}

func TestMemory_InvalidateAndExpiry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory(time.Minute)
	c.now = func() time.Time { return base }

	require.NoError(t, c.Set(ctx, "k", payload{}))
	require.NoError(t, c.Invalidate(ctx))
	var out payload
	ok, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, c.Len())

	require.NoError(t, c.Set(ctx, "k", payload{}))
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	ok, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_KeysCarryGeneration(t *testing.T) {
	r := NewRedis(nil, time.Minute, "")
	assert.Equal(t, "waiwahost:availability:gen", r.generationKey())
	assert.Equal(t, "waiwahost:availability:3:availability.grid:x", r.entryKey(3, "availability.grid:x"))
}
