// Package primary defines the primary ports (driving adapters) for the
// application: the service interfaces an external transport layer consumes,
// plus their request/response types.
package primary

import (
	"context"

	"github.com/example/roster/internal/models"
)

// IngestForecastRequest carries one raw forecast snapshot.
type IngestForecastRequest struct {
	TenantID       string
	RawText        string
	WeekAnchorDate string // Monday of the planning week, YYYY-MM-DD
	IdempotencyKey string
}

// IngestForecastResponse reports the created (or replayed) forecast.
type IngestForecastResponse struct {
	Forecast      *models.ForecastVersion
	InstanceCount int
	Replayed      bool // true when the same canonical text was already ingested
	Problems      []string
}

// ForecastService drives forecast ingestion and expansion.
type ForecastService interface {
	// IngestForecast canonicalizes and stores a forecast snapshot, parses
	// it into templates, and expands the templates into tour instances.
	// Idempotent by (tenant, input hash): re-ingesting the same canonical
	// text returns the existing version.
	IngestForecast(ctx context.Context, req IngestForecastRequest) (*IngestForecastResponse, error)

	// GetForecast retrieves a forecast version by ID.
	GetForecast(ctx context.Context, forecastID string) (*models.ForecastVersion, error)

	// ListForecasts lists forecast versions for a tenant.
	ListForecasts(ctx context.Context, tenantID string) ([]*models.ForecastVersion, error)

	// ListInstances retrieves the expanded tour instances of a forecast.
	ListInstances(ctx context.Context, forecastID string) ([]*models.TourInstance, error)
}
