package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

type fixtureFile struct {
	Properties []dto.Property `json:"properties"`
	Intervals  []dto.Interval `json:"intervals"`
}

// loadFixtures seeds properties and intervals. Intervals already stored are
// left alone and overlapping ones are skipped, so reloading is harmless.
func loadFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range fixtures.Properties {
		p := fx.ToDomain()
		err := inUnit(ctx, factory, func(ctx context.Context, unit uow.UnitOfWork) error {
			return unit.Properties().Save(ctx, &p)
		})
		if err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
		}
	}

	imported := 0
	for _, fx := range fixtures.Intervals {
		iv, err := fx.ToDomain()
		if err != nil {
			logger.Error("fixture invalid", "interval_id", fx.ID, "error", err)
			continue
		}
		iv.Version = 0
		err = inUnit(ctx, factory, func(ctx context.Context, unit uow.UnitOfWork) error {
			_, err := unit.Intervals().ByRef(ctx, iv.Ref())
			switch {
			case err == nil:
				return errFixtureExists
			case !errors.Is(err, domainavailability.ErrIntervalNotFound):
				return err
			}
			if err := unit.LockProperty(ctx, iv.PropertyID); err != nil {
				return err
			}
			existing, err := unit.Intervals().Window(ctx, domainavailability.WindowQuery{PropertyID: iv.PropertyID, Range: iv.Range})
			if err != nil {
				return err
			}
			if err := domainavailability.Validate(iv, existing, iv.Ref()); err != nil {
				return err
			}
			return unit.Intervals().Save(ctx, &iv)
		})
		switch {
		case errors.Is(err, errFixtureExists):
		case err != nil:
			logger.Warn("fixture interval skipped", "interval", iv.Ref().String(), "error", err)
		default:
			imported++
		}
	}
	logger.Info("fixtures loaded", "path", path, "properties", len(fixtures.Properties), "intervals", imported)
	return nil
}

var errFixtureExists = errors.New("fixture already stored")

func inUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = uow.Bind(ctx, unit)
	if err := fn(ctx, unit); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}
