package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/storage/memory"
)

const overlappingFixtures = `{
  "properties": [{"id": "p1", "name": "Casa Mar", "city": "Cartagena", "company_id": "c1"}],
  "intervals": [
    {"id": "r1", "kind": "reservation", "property_id": "p1", "status": "confirmed", "start": "2025-03-01", "end": "2025-03-05"},
    {"id": "r2", "kind": "reservation", "property_id": "p1", "status": "pending", "start": "2025-03-04", "end": "2025-03-06"},
    {"id": "r3", "kind": "reservation", "property_id": "p1", "status": "cancelled", "start": "2025-03-02", "end": "2025-03-03"},
    {"id": "b1", "kind": "block", "property_id": "p1", "start": "2025-03-05", "end": "2025-03-07"}
  ]
}`

func TestLoadFixtures_SkipsOverlapsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "availability.json")
	require.NoError(t, os.WriteFile(path, []byte(overlappingFixtures), 0o600))
	factory := memory.Factory{Store: memory.NewStore()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	require.NoError(t, loadFixtures(ctx, factory, path, logger))
	require.NoError(t, loadFixtures(ctx, factory, path, logger))

	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	all, err := unit.Intervals().Window(ctx, domainavailability.WindowQuery{PropertyID: "p1", IncludeCancelled: true})
	require.NoError(t, err)
	var ids []string
	for _, iv := range all {
		ids = append(ids, string(iv.ID))
	}
	assert.ElementsMatch(t, []string{"r1", "r3", "b1"}, ids)

	p, err := unit.Properties().ByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Cartagena", p.City)
}

func TestLoadFixtures_MissingFileIsNotAnError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := loadFixtures(context.Background(), memory.Factory{Store: memory.NewStore()}, filepath.Join(t.TempDir(), "none.json"), logger)
	assert.NoError(t, err)
}
