package primary

import (
	"context"

	"github.com/example/roster/internal/models"
)

// SolvePlanRequest starts one solve attempt over an expanded forecast.
type SolvePlanRequest struct {
	TenantID          string
	ForecastVersionID string
	Seed              int64
	SolverConfig      map[string]any
	IdempotencyKey    string
	// Override permits solving inside the freeze window; Justification is
	// mandatory with it and lands in the audit log.
	Override      bool
	Justification string
}

// SolvePlanResponse reports the attempt's outcome. The plan ends in draft
// when every blocking check passed, or failed otherwise; CheckResults holds
// the full battery either way.
type SolvePlanResponse struct {
	Plan         *models.PlanVersion
	CheckResults []*models.AuditLogEntry
	Replayed     bool
}

// PublishPlanRequest locks a draft plan for publication.
type PublishPlanRequest struct {
	PlanVersionID  string
	Actor          string
	IdempotencyKey string
	// Override permits locking inside the freeze window; Justification is
	// mandatory with it and lands in the audit log.
	Override      bool
	Justification string
}

// PublishPlanResponse reports the locked plan and any superseded ones.
type PublishPlanResponse struct {
	Plan       *models.PlanVersion
	Superseded []string
	Replayed   bool
}

// RequeuePlanRequest starts a fresh attempt for a failed plan's forecast.
// Seed and config default to the failed attempt's values.
type RequeuePlanRequest struct {
	PlanVersionID  string
	Seed           int64 // 0 keeps the failed plan's seed
	IdempotencyKey string
	Override       bool
	Justification  string
}

// PlanService drives the plan version lifecycle.
type PlanService interface {
	// SolvePlan acquires the per-(tenant, forecast) solve lock, creates a
	// fresh plan version, invokes the solver, runs the audit battery and
	// leaves the plan in draft or failed. Returns a ConflictError when the
	// lock is held or the freeze window applies.
	SolvePlan(ctx context.Context, req SolvePlanRequest) (*SolvePlanResponse, error)

	// PublishPlan performs draft -> locked; every blocking check of the
	// latest audit run must be pass and the freeze window must not apply
	// (or be overridden). Locking supersedes any previously locked plan of
	// the same forecast.
	PublishPlan(ctx context.Context, req PublishPlanRequest) (*PublishPlanResponse, error)

	// RequeuePlan creates a new solve attempt for a failed plan's forecast.
	RequeuePlan(ctx context.Context, req RequeuePlanRequest) (*SolvePlanResponse, error)

	// GetPlan retrieves a plan version by ID.
	GetPlan(ctx context.Context, planID string) (*models.PlanVersion, error)

	// ListPlans lists plan versions for a forecast.
	ListPlans(ctx context.Context, forecastID string) ([]*models.PlanVersion, error)

	// GetAssignments retrieves a plan's assignments.
	GetAssignments(ctx context.Context, planID string) ([]*models.Assignment, error)
}
