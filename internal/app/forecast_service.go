package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/roster/internal/core/fingerprint"
	"github.com/example/roster/internal/core/lifecycle"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/ports/secondary"
)

// ForecastServiceImpl implements the ForecastService interface.
type ForecastServiceImpl struct {
	forecastRepo secondary.ForecastRepository
	parser       secondary.ForecastParser
	gate         *idempotencyGate
	log          zerolog.Logger
}

// NewForecastService creates a new ForecastService with injected
// dependencies.
func NewForecastService(
	forecastRepo secondary.ForecastRepository,
	parser secondary.ForecastParser,
	idempotencyRepo secondary.IdempotencyRepository,
	idempotencyTTL time.Duration,
	log zerolog.Logger,
) *ForecastServiceImpl {
	return &ForecastServiceImpl{
		forecastRepo: forecastRepo,
		parser:       parser,
		gate:         newIdempotencyGate(idempotencyRepo, idempotencyTTL),
		log:          log.With().Str("service", "forecast").Logger(),
	}
}

// ingestReceipt is the idempotency payload of a completed ingestion.
type ingestReceipt struct {
	ForecastVersionID string `json:"forecast_version_id"`
	InstanceCount     int    `json:"instance_count"`
}

// IngestForecast canonicalizes and stores a forecast snapshot, parses it
// into templates, and expands the templates into tour instances. Idempotent
// by (tenant, input hash): equivalent text returns the existing version.
func (s *ForecastServiceImpl) IngestForecast(ctx context.Context, req primary.IngestForecastRequest) (*primary.IngestForecastResponse, error) {
	if req.TenantID == "" {
		return nil, &models.ValidationError{Msg: "tenant id is required"}
	}
	anchor, err := time.Parse("2006-01-02", req.WeekAnchorDate)
	if err != nil {
		return nil, &models.ValidationError{Msg: fmt.Sprintf("invalid week anchor date %q", req.WeekAnchorDate)}
	}
	if anchor.Weekday() != time.Monday {
		return nil, &models.ValidationError{Msg: fmt.Sprintf("week anchor %s is not a Monday", req.WeekAnchorDate)}
	}
	canonical := fingerprint.CanonicalizeText(req.RawText)
	if canonical == "" {
		return nil, &models.ValidationError{Msg: "forecast text is empty"}
	}
	inputHash := fingerprint.InputHash(req.RawText)

	reqHash := requestHash("ingest", req.TenantID, inputHash, req.WeekAnchorDate)
	if record, err := s.gate.check(ctx, req.IdempotencyKey, reqHash); err != nil {
		return nil, err
	} else if record != nil {
		return s.replay(ctx, record)
	}

	// Equivalent text was already ingested: return the existing version
	// instead of a duplicate.
	if existing, err := s.forecastRepo.FindByInputHash(ctx, req.TenantID, inputHash); err != nil {
		return nil, err
	} else if existing != nil {
		instances, err := s.forecastRepo.ListInstances(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("forecast_id", existing.ID).Msg("equivalent forecast already ingested")
		return &primary.IngestForecastResponse{
			Forecast:      existing,
			InstanceCount: len(instances),
			Replayed:      true,
		}, nil
	}

	forecast := &models.ForecastVersion{
		ID:             uuid.NewString(),
		TenantID:       req.TenantID,
		InputHash:      inputHash,
		RawText:        canonical,
		WeekAnchorDate: req.WeekAnchorDate,
		Status:         models.ForecastStatusIngested,
	}
	if err := s.forecastRepo.Create(ctx, forecast); err != nil {
		return nil, fmt.Errorf("failed to create forecast version: %w", err)
	}

	parsed, err := s.parser.Parse(canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to parse forecast: %w", err)
	}

	verdictStatus := map[string]string{
		secondary.VerdictPass: models.ForecastStatusValidated,
		secondary.VerdictWarn: models.ForecastStatusWarn,
		secondary.VerdictFail: models.ForecastStatusFail,
	}[parsed.Verdict]
	if err := s.forecastRepo.UpdateStatus(ctx, forecast.ID, models.ForecastStatusIngested, verdictStatus); err != nil {
		return nil, err
	}
	forecast.Status = verdictStatus

	if parsed.Verdict == secondary.VerdictFail {
		s.log.Warn().Str("forecast_id", forecast.ID).Strs("problems", parsed.Problems).
			Msg("forecast failed validation")
		return &primary.IngestForecastResponse{
			Forecast: forecast,
			Problems: parsed.Problems,
		}, nil
	}

	for _, t := range parsed.Templates {
		t.ID = uuid.NewString()
		t.ForecastVersionID = forecast.ID
	}
	if err := s.forecastRepo.CreateTemplates(ctx, parsed.Templates); err != nil {
		return nil, fmt.Errorf("failed to store templates: %w", err)
	}

	if guard := lifecycle.CanExpand(lifecycle.ForecastStatus(forecast.Status)); !guard.Allowed {
		return nil, models.NewConflict(models.ConflictIllegalTransition, "%s", guard.Reason)
	}
	instances := expand(forecast, parsed.Templates, anchor)
	if err := s.forecastRepo.CreateInstances(ctx, instances); err != nil {
		return nil, fmt.Errorf("failed to store instances: %w", err)
	}
	if err := s.forecastRepo.UpdateStatus(ctx, forecast.ID, verdictStatus, models.ForecastStatusExpanded); err != nil {
		return nil, err
	}
	forecast.Status = models.ForecastStatusExpanded

	if err := s.gate.store(ctx, req.IdempotencyKey, reqHash, ingestReceipt{
		ForecastVersionID: forecast.ID,
		InstanceCount:     len(instances),
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("forecast_id", forecast.ID).Int("instances", len(instances)).
		Str("verdict", parsed.Verdict).Msg("forecast ingested")
	return &primary.IngestForecastResponse{
		Forecast:      forecast,
		InstanceCount: len(instances),
		Problems:      parsed.Problems,
	}, nil
}

// expand turns templates into one instance per headcount slot, dated against
// the week anchor.
func expand(forecast *models.ForecastVersion, templates []*models.TourTemplate, anchor time.Time) []*models.TourInstance {
	var instances []*models.TourInstance
	for _, t := range templates {
		day := anchor.AddDate(0, 0, t.Weekday).Format("2006-01-02")
		fp := fingerprint.Tour(day, t.StartTime, t.EndTime, t.Depot, t.Skill)
		for slot := 0; slot < t.Headcount; slot++ {
			instances = append(instances, &models.TourInstance{
				ID:                uuid.NewString(),
				ForecastVersionID: forecast.ID,
				TemplateID:        t.ID,
				Fingerprint:       fp,
				Day:               day,
				StartTime:         t.StartTime,
				EndTime:           t.EndTime,
				Depot:             t.Depot,
				Skill:             t.Skill,
				SplitGroup:        t.SplitGroup,
				CrossMidnight:     t.CrossMidnight,
				Slot:              slot,
			})
		}
	}
	return instances
}

func (s *ForecastServiceImpl) replay(ctx context.Context, record *models.IdempotencyRecord) (*primary.IngestForecastResponse, error) {
	var receipt ingestReceipt
	if err := json.Unmarshal([]byte(record.Response), &receipt); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	forecast, err := s.forecastRepo.GetByID(ctx, receipt.ForecastVersionID)
	if err != nil {
		return nil, err
	}
	return &primary.IngestForecastResponse{
		Forecast:      forecast,
		InstanceCount: receipt.InstanceCount,
		Replayed:      true,
	}, nil
}

// GetForecast retrieves a forecast version by ID.
func (s *ForecastServiceImpl) GetForecast(ctx context.Context, forecastID string) (*models.ForecastVersion, error) {
	return s.forecastRepo.GetByID(ctx, forecastID)
}

// ListForecasts lists forecast versions for a tenant.
func (s *ForecastServiceImpl) ListForecasts(ctx context.Context, tenantID string) ([]*models.ForecastVersion, error) {
	return s.forecastRepo.List(ctx, secondary.ForecastFilters{TenantID: tenantID})
}

// ListInstances retrieves the expanded tour instances of a forecast.
func (s *ForecastServiceImpl) ListInstances(ctx context.Context, forecastID string) ([]*models.TourInstance, error) {
	return s.forecastRepo.ListInstances(ctx, forecastID)
}

// Ensure ForecastServiceImpl implements the interface
var _ primary.ForecastService = (*ForecastServiceImpl)(nil)
