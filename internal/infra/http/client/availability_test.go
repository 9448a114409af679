package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/navigator"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
)

func mustWindow(t *testing.T) grid.Window {
	t.Helper()
	w, err := grid.NewWindow(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 15)
	require.NoError(t, err)
	return w
}

func TestFetch_MapsAvailabilityPayload(t *testing.T) {
	var seen *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.Availability{
			Properties: []dto.Property{{ID: "p1", Name: "Casa Mar", City: "Cartagena", CompanyID: "c1"}},
			Intervals: []dto.Interval{
				{ID: "r1", Kind: "reservation", PropertyID: "p1", Status: "confirmed", Start: "2025-03-02", End: "2025-03-05", Version: 2},
				{ID: "b1", Kind: "block", PropertyID: "p1", BlockType: "mantenimiento", Start: "2025-03-07", End: "2025-03-08"},
			},
		})
	}))
	defer srv.Close()

	c := &AvailabilityClient{BaseURL: srv.URL + "/", CompanyID: "c1", Client: srv.Client()}
	res, err := c.Fetch(context.Background(), navigator.Query{
		Window: mustWindow(t),
		Filter: domainavailability.PropertyFilter{City: "Cartagena", Search: "casa"},
	})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, availabilityPath, seen.URL.Path)
	assert.Equal(t, "2025-03-01", seen.URL.Query().Get("start"))
	assert.Equal(t, "15", seen.URL.Query().Get("days"))
	assert.Equal(t, "Cartagena", seen.URL.Query().Get("city"))
	assert.Equal(t, "casa", seen.URL.Query().Get("search"))
	assert.Equal(t, "c1", seen.Header.Get(companyHeader))

	require.Len(t, res.Properties, 1)
	require.Len(t, res.Intervals, 2)
	r1 := res.Intervals[0]
	assert.Equal(t, domainavailability.KindReservation, r1.Kind)
	assert.Equal(t, domainavailability.StatusConfirmed, r1.Status)
	assert.Equal(t, 3, r1.Nights())
	assert.Equal(t, int64(2), r1.Version)
	assert.Equal(t, domainavailability.KindBlock, res.Intervals[1].Kind)
}

func TestFetch_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := (&AvailabilityClient{}).Fetch(context.Background(), navigator.Query{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		}))
		defer srv.Close()
		_, err := (&AvailabilityClient{BaseURL: srv.URL}).Fetch(context.Background(), navigator.Query{Window: mustWindow(t)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("bad interval", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(dto.Availability{Intervals: []dto.Interval{{ID: "x", Kind: "hold", Start: "2025-03-01", End: "2025-03-02"}}})
		}))
		defer srv.Close()
		_, err := (&AvailabilityClient{BaseURL: srv.URL}).Fetch(context.Background(), navigator.Query{Window: mustWindow(t)})
		assert.ErrorIs(t, err, domainavailability.ErrInvalidInterval)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)
		_, err := (&AvailabilityClient{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).Fetch(context.Background(), navigator.Query{Window: mustWindow(t)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})
}

func TestFetch_DrivesNavigator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.Availability{
			Properties: []dto.Property{{ID: "p1", Name: "Casa Mar"}},
			Intervals:  []dto.Interval{{ID: "r1", Kind: "reservation", PropertyID: "p1", Status: "pending", Start: r.URL.Query().Get("start"), End: "2099-01-01"}},
		})
	}))
	defer srv.Close()

	nav, err := navigator.New(navigator.Options{Fetcher: &AvailabilityClient{BaseURL: srv.URL}})
	require.NoError(t, err)
	defer nav.Close()
	nav.Refresh()
	nav.Wait()

	view := nav.View()
	require.NoError(t, view.Err)
	require.NotNil(t, view.Grid)
	require.Len(t, view.Grid.Rows, 1)
	require.Len(t, view.Grid.Rows[0].Bars, 1)
	assert.Equal(t, 0, view.Grid.Rows[0].Bars[0].ColStart)
}
