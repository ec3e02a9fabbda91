package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/roster/internal/core/diffing"
	"github.com/example/roster/internal/metrics"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/ports/secondary"
)

// DiffServiceImpl implements the DiffService interface.
type DiffServiceImpl struct {
	forecastRepo secondary.ForecastRepository
	diffRepo     secondary.DiffRepository
	log          zerolog.Logger
}

// NewDiffService creates a new DiffService with injected dependencies.
func NewDiffService(forecastRepo secondary.ForecastRepository, diffRepo secondary.DiffRepository, log zerolog.Logger) *DiffServiceImpl {
	return &DiffServiceImpl{
		forecastRepo: forecastRepo,
		diffRepo:     diffRepo,
		log:          log.With().Str("service", "diff").Logger(),
	}
}

// DiffForecasts classifies each tour fingerprint as added, removed or changed
// between two expanded forecast versions of the same tenant. Forecasts are
// immutable, so the result is cached forever under the ordered id pair.
func (s *DiffServiceImpl) DiffForecasts(ctx context.Context, oldForecastID, newForecastID string) ([]*models.DiffEntry, error) {
	if oldForecastID == newForecastID {
		return nil, &models.ValidationError{Msg: "cannot diff a forecast against itself"}
	}

	if cached, found, err := s.diffRepo.Get(ctx, oldForecastID, newForecastID); err != nil {
		return nil, err
	} else if found {
		metrics.DiffCacheHitsTotal.Inc()
		return cached, nil
	}

	oldForecast, err := s.forecastRepo.GetByID(ctx, oldForecastID)
	if err != nil {
		return nil, err
	}
	newForecast, err := s.forecastRepo.GetByID(ctx, newForecastID)
	if err != nil {
		return nil, err
	}
	if oldForecast.TenantID != newForecast.TenantID {
		return nil, &models.ValidationError{Msg: "forecasts belong to different tenants"}
	}
	for _, f := range []*models.ForecastVersion{oldForecast, newForecast} {
		if f.Status != models.ForecastStatusExpanded {
			return nil, models.NewConflict(models.ConflictIllegalTransition,
				"forecast %s is %s, diffing requires expanded", f.ID, f.Status)
		}
	}

	before, err := s.loadTours(ctx, oldForecastID)
	if err != nil {
		return nil, err
	}
	after, err := s.loadTours(ctx, newForecastID)
	if err != nil {
		return nil, err
	}

	var entries []*models.DiffEntry
	for _, e := range diffing.Diff(before, after) {
		entries = append(entries, &models.DiffEntry{
			OldForecastID: oldForecastID,
			NewForecastID: newForecastID,
			Fingerprint:   e.Fingerprint,
			Type:          e.Type,
			Count:         e.Count,
			Detail:        e.Detail,
		})
	}
	if err := s.diffRepo.Put(ctx, oldForecastID, newForecastID, entries); err != nil {
		return nil, err
	}

	s.log.Info().Str("old", oldForecastID).Str("new", newForecastID).
		Int("entries", len(entries)).Msg("forecast diff computed")
	return entries, nil
}

// loadTours maps a forecast's instances into the diff engine's tour shape.
// One slot per headcount means repeated fingerprints carry the multiset
// counts the engine expects.
func (s *DiffServiceImpl) loadTours(ctx context.Context, forecastID string) ([]diffing.Tour, error) {
	instances, err := s.forecastRepo.ListInstances(ctx, forecastID)
	if err != nil {
		return nil, err
	}
	tours := make([]diffing.Tour, 0, len(instances))
	for _, inst := range instances {
		day, err := time.Parse("2006-01-02", inst.Day)
		if err != nil {
			return nil, fmt.Errorf("instance %s has malformed day %q: %w", inst.ID, inst.Day, err)
		}
		tours = append(tours, diffing.Tour{
			Fingerprint: inst.Fingerprint,
			Weekday:     (int(day.Weekday()) + 6) % 7,
			Depot:       inst.Depot,
			Skill:       inst.Skill,
		})
	}
	return tours, nil
}

// Ensure DiffServiceImpl implements the interface
var _ primary.DiffService = (*DiffServiceImpl)(nil)
