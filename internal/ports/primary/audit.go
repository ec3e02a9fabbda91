package primary

import (
	"context"

	"github.com/example/roster/internal/models"
)

// AuditService exposes compliance audit results.
type AuditService interface {
	// GetResults retrieves every audit log entry for a plan, oldest first.
	GetResults(ctx context.Context, planID string) ([]*models.AuditLogEntry, error)

	// GetLatestRun retrieves the check results of the most recent audit
	// run.
	GetLatestRun(ctx context.Context, planID string) ([]*models.AuditLogEntry, error)
}
