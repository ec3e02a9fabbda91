package primary

import (
	"context"

	"github.com/example/roster/internal/models"
)

// DiffService compares two forecast versions.
type DiffService interface {
	// DiffForecasts classifies each tour fingerprint as added, removed or
	// changed between the two versions. Results are cached by the ordered
	// id pair.
	DiffForecasts(ctx context.Context, oldForecastID, newForecastID string) ([]*models.DiffEntry, error)
}
