package models

// PlanVersion is one solve attempt over a forecast. Each attempt gets a
// fresh PlanVersion; a failed attempt is never reused. Status can be:
// solving, solved, audited, draft, locked, failed, superseded.
type PlanVersion struct {
	ID                string
	TenantID          string
	ForecastVersionID string
	Seed              int64
	SolverConfigHash  string
	InputHash         string
	OutputHash        string
	Status            string
	LockedBy          string
	LockedAt          string
	SolveStartedAt    string
	CreatedAt         string
	UpdatedAt         string
}

// Plan status constants
const (
	PlanStatusSolving    = "solving"
	PlanStatusSolved     = "solved"
	PlanStatusAudited    = "audited"
	PlanStatusDraft      = "draft"
	PlanStatusLocked     = "locked"
	PlanStatusFailed     = "failed"
	PlanStatusSuperseded = "superseded"
)

// Assignment binds one driver to one tour instance within a plan. Owned
// exclusively by its PlanVersion; read-only once the plan is locked.
type Assignment struct {
	ID             string
	PlanVersionID  string
	DriverID       string
	TourInstanceID string
	Day            string
	BlockID        string
	Role           string
	Metadata       string // JSON blob, solver-specific
}
