// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application
// drives external systems.
package secondary

import (
	"context"
	"time"

	"github.com/example/roster/internal/models"
)

// ForecastRepository defines the secondary port for forecast persistence.
type ForecastRepository interface {
	// Create persists a new forecast version.
	Create(ctx context.Context, forecast *models.ForecastVersion) error

	// GetByID retrieves a forecast version by its ID.
	GetByID(ctx context.Context, id string) (*models.ForecastVersion, error)

	// FindByInputHash retrieves the forecast version with the given
	// (tenant, input hash) identity, or nil if none exists.
	FindByInputHash(ctx context.Context, tenantID, inputHash string) (*models.ForecastVersion, error)

	// UpdateStatus moves a forecast between statuses with a guarded update:
	// the row must currently be in the from status.
	UpdateStatus(ctx context.Context, id, from, to string) error

	// CreateTemplates persists the parsed tour templates of a forecast.
	CreateTemplates(ctx context.Context, templates []*models.TourTemplate) error

	// CreateInstances persists the expanded tour instances of a forecast.
	CreateInstances(ctx context.Context, instances []*models.TourInstance) error

	// ListInstances retrieves every tour instance of a forecast.
	ListInstances(ctx context.Context, forecastID string) ([]*models.TourInstance, error)

	// List retrieves forecast versions matching the given filters.
	List(ctx context.Context, filters ForecastFilters) ([]*models.ForecastVersion, error)
}

// ForecastFilters contains filter options for querying forecasts.
type ForecastFilters struct {
	TenantID string
	Status   string
}

// PlanRepository defines the secondary port for plan persistence.
type PlanRepository interface {
	// Create persists a new plan version (in the solving status).
	Create(ctx context.Context, plan *models.PlanVersion) error

	// GetByID retrieves a plan version by its ID.
	GetByID(ctx context.Context, id string) (*models.PlanVersion, error)

	// List retrieves plan versions matching the given filters.
	List(ctx context.Context, filters PlanFilters) ([]*models.PlanVersion, error)

	// UpdateStatus moves a plan between statuses with a guarded update: the
	// row must currently be in the from status, so a transition commits
	// exactly once even under concurrent sweeps.
	UpdateStatus(ctx context.Context, id, from, to string) error

	// CompleteSolve atomically stores the solver output: assignments,
	// output hash and the solving -> solved transition commit together or
	// not at all.
	CompleteSolve(ctx context.Context, planID, outputHash string, assignments []*models.Assignment) error

	// Lock performs the draft -> locked transition, recording who locked
	// and when.
	Lock(ctx context.Context, planID, actor string) error

	// SupersedeOthers moves every other locked plan of the forecast to
	// superseded. Returns the ids of the plans that were superseded.
	SupersedeOthers(ctx context.Context, forecastID, keepPlanID string) ([]string, error)

	// ListAssignments retrieves the assignments of a plan.
	ListAssignments(ctx context.Context, planID string) ([]*models.Assignment, error)

	// FindStaleSolving retrieves plans stuck in solving since before the
	// cutoff.
	FindStaleSolving(ctx context.Context, cutoff time.Time) ([]*models.PlanVersion, error)
}

// PlanFilters contains filter options for querying plans.
type PlanFilters struct {
	TenantID          string
	ForecastVersionID string
	Status            string
}

// AuditLogRepository defines the secondary port for the append-only audit
// log. There is deliberately no update or delete operation.
type AuditLogRepository interface {
	// AppendBatch writes all entries of one audit run in a single
	// transaction so no reader observes a partial run.
	AppendBatch(ctx context.Context, entries []*models.AuditLogEntry) error

	// ListByPlan retrieves every entry for a plan, oldest first.
	ListByPlan(ctx context.Context, planID string) ([]*models.AuditLogEntry, error)

	// LatestRun retrieves the entries of the most recent audit run for a
	// plan (lifecycle entries excluded).
	LatestRun(ctx context.Context, planID string) ([]*models.AuditLogEntry, error)
}

// DiffRepository defines the secondary port for the diff cache.
type DiffRepository interface {
	// Get retrieves a cached diff for the ordered id pair. found is false
	// when the pair has never been computed.
	Get(ctx context.Context, oldForecastID, newForecastID string) (entries []*models.DiffEntry, found bool, err error)

	// Put caches a computed diff for the ordered id pair.
	Put(ctx context.Context, oldForecastID, newForecastID string, entries []*models.DiffEntry) error
}

// SolveLockRepository defines the secondary port for the per-
// (tenant, forecast) solve mutex. Acquire is an atomic acquire-if-absent;
// the lock row survives process restarts so crash recovery can reclaim it.
type SolveLockRepository interface {
	// Acquire attempts to take the lock. Returns false when another holder
	// has it.
	Acquire(ctx context.Context, tenantID, forecastID, holder string) (bool, error)

	// BindPlan records the plan version a held lock is serving.
	BindPlan(ctx context.Context, holder, planID string) error

	// Release drops the lock held by holder.
	Release(ctx context.Context, holder string) error

	// ReleaseByForecast drops whatever lock exists for the key. Used by the
	// recovery sweep, which has no live holder.
	ReleaseByForecast(ctx context.Context, tenantID, forecastID string) error
}

// IdempotencyRepository defines the secondary port for idempotency records.
type IdempotencyRepository interface {
	// Get retrieves the record for a key, or nil when none exists or the
	// record has expired.
	Get(ctx context.Context, key string, now time.Time) (*models.IdempotencyRecord, error)

	// Put stores a record, replacing an expired one under the same key.
	Put(ctx context.Context, record *models.IdempotencyRecord) error

	// DeleteExpired removes records whose TTL has passed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
