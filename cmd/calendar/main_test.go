package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/navigator"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func newNavigator(t *testing.T) *navigator.Navigator {
	t.Helper()
	fetcher := navigator.FetcherFunc(func(context.Context, navigator.Query) (navigator.Result, error) {
		return navigator.Result{
			Properties: []domainavailability.Property{{ID: "p1", Name: "Casa Mar", City: "Cartagena"}},
			Intervals: []domainavailability.Interval{
				{ID: "r1", PropertyID: "p1", Kind: domainavailability.KindReservation, Status: domainavailability.StatusPending,
					Range: daterange.MustNew(day(3), day(5)), Label: "Ana"},
				{ID: "b1", PropertyID: "p1", Kind: domainavailability.KindBlock, Range: daterange.MustNew(day(5), day(6))},
			},
		}, nil
	})
	nav, err := navigator.New(navigator.Options{
		Fetcher: fetcher,
		Engine:  engine.New(domainavailability.FixedClock{At: day(3)}),
	})
	require.NoError(t, err)
	t.Cleanup(nav.Close)
	return nav
}

func TestRender_MarksBarsAndToday(t *testing.T) {
	nav := newNavigator(t)
	nav.Refresh()
	nav.Wait()

	var out bytes.Buffer
	render(&out, nav.View())
	text := out.String()
	assert.Contains(t, text, "Mar 2025")
	assert.Contains(t, text, " 3*")
	assert.Contains(t, text, "Casa Mar")
	assert.Contains(t, text, " P  P  B ")
	assert.Contains(t, text, "2025-03-03 → 2025-03-05   2 nights  Ana")
	assert.Contains(t, text, "1 properties, 2 bars")
}

func TestApply_Commands(t *testing.T) {
	nav := newNavigator(t)
	startAt := nav.Window().Start

	quit, err := apply(nav, "n")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, daterange.AddDays(startAt, 7), nav.Window().Start)

	_, err = apply(nav, "d 30")
	require.NoError(t, err)
	assert.Equal(t, 30, nav.Window().Days)

	_, err = apply(nav, "s bloqueado")
	require.NoError(t, err)
	nav.Wait()
	assert.Equal(t, grid.FilterBlocked, nav.View().Status)

	_, err = apply(nav, "c Cartagena")
	require.NoError(t, err)
	nav.Wait()
	assert.Equal(t, "Cartagena", nav.View().Filter.City)

	_, err = apply(nav, "d many")
	assert.Error(t, err)
	_, err = apply(nav, "x")
	assert.Error(t, err)

	quit, err = apply(nav, "q")
	require.NoError(t, err)
	assert.True(t, quit)
}
