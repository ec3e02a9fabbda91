package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// sqliteTime is the storage format of DATETIME comparisons.
const sqliteTime = "2006-01-02 15:04:05"

// PlanRepository implements secondary.PlanRepository with SQLite.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new SQLite plan repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create persists a new plan version in the solving status.
func (r *PlanRepository) Create(ctx context.Context, plan *models.PlanVersion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plan_versions (id, tenant_id, forecast_version_id, seed, solver_config_hash, input_hash, status, solve_started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		plan.ID, plan.TenantID, plan.ForecastVersionID, plan.Seed,
		plan.SolverConfigHash, plan.InputHash, models.PlanStatusSolving,
	)
	if err != nil {
		return fmt.Errorf("failed to create plan version: %w", err)
	}
	return nil
}

// GetByID retrieves a plan version by its ID.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.PlanVersion, error) {
	row := r.db.QueryRowContext(ctx, planSelect+" WHERE id = ?", id)
	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan version %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan version: %w", err)
	}
	return plan, nil
}

// List retrieves plan versions matching the given filters.
func (r *PlanRepository) List(ctx context.Context, filters secondary.PlanFilters) ([]*models.PlanVersion, error) {
	query := planSelect + " WHERE 1=1"
	args := []any{}

	if filters.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, filters.TenantID)
	}
	if filters.ForecastVersionID != "" {
		query += " AND forecast_version_id = ?"
		args = append(args, filters.ForecastVersionID)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan versions: %w", err)
	}
	defer rows.Close()

	var plans []*models.PlanVersion
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan version: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// UpdateStatus moves a plan between statuses with a guarded update: the row
// must currently be in the from status, so each transition commits exactly
// once even under concurrent sweeps.
func (r *PlanRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE plan_versions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		to, id, from,
	)
	if err != nil {
		return translateIntegrity(err, "plan_version", id)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return models.NewConflict(models.ConflictIllegalTransition,
			"plan %s is not in status %s", id, from)
	}
	return nil
}

// CompleteSolve atomically stores the solver output: the assignments, the
// output hash and the solving -> solved transition commit together or not
// at all.
func (r *PlanRepository) CompleteSolve(ctx context.Context, planID, outputHash string, assignments []*models.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE plan_versions SET output_hash = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		outputHash, models.PlanStatusSolved, planID, models.PlanStatusSolving,
	)
	if err != nil {
		return translateIntegrity(err, "plan_version", planID)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return models.NewConflict(models.ConflictIllegalTransition,
			"plan %s is not in status %s", planID, models.PlanStatusSolving)
	}

	for _, a := range assignments {
		var metadata any
		if a.Metadata != "" {
			metadata = a.Metadata
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (id, plan_version_id, driver_id, tour_instance_id, day, block_id, role, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.PlanVersionID, a.DriverID, a.TourInstanceID, a.Day, a.BlockID, a.Role, metadata,
		)
		if err != nil {
			return translateIntegrity(fmt.Errorf("failed to create assignment: %w", err), "assignment", a.ID)
		}
	}
	return tx.Commit()
}

// Lock performs the draft -> locked transition, recording who locked and
// when.
func (r *PlanRepository) Lock(ctx context.Context, planID, actor string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE plan_versions SET status = ?, locked_by = ?, locked_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		models.PlanStatusLocked, actor, planID, models.PlanStatusDraft,
	)
	if err != nil {
		return translateIntegrity(err, "plan_version", planID)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return models.NewConflict(models.ConflictIllegalTransition,
			"plan %s is not in status %s", planID, models.PlanStatusDraft)
	}
	return nil
}

// SupersedeOthers moves every other locked plan of the forecast to
// superseded and returns their ids.
func (r *PlanRepository) SupersedeOthers(ctx context.Context, forecastID, keepPlanID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM plan_versions WHERE forecast_version_id = ? AND status = ? AND id != ?",
		forecastID, models.PlanStatusLocked, keepPlanID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find locked plans: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan plan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			"UPDATE plan_versions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
			models.PlanStatusSuperseded, id, models.PlanStatusLocked,
		)
		if err != nil {
			return nil, translateIntegrity(err, "plan_version", id)
		}
	}
	return ids, nil
}

// ListAssignments retrieves the assignments of a plan.
func (r *PlanRepository) ListAssignments(ctx context.Context, planID string) ([]*models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, plan_version_id, driver_id, tour_instance_id, day, block_id, role, metadata
		FROM assignments WHERE plan_version_id = ? ORDER BY day, driver_id, id`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		var a models.Assignment
		var metadata sql.NullString
		if err := rows.Scan(&a.ID, &a.PlanVersionID, &a.DriverID, &a.TourInstanceID,
			&a.Day, &a.BlockID, &a.Role, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Metadata = metadata.String
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// FindStaleSolving retrieves plans stuck in solving since before the
// cutoff.
func (r *PlanRepository) FindStaleSolving(ctx context.Context, cutoff time.Time) ([]*models.PlanVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		planSelect+" WHERE status = ? AND solve_started_at < ?",
		models.PlanStatusSolving, cutoff.UTC().Format(sqliteTime),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.PlanVersion
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan version: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

const planSelect = `SELECT id, tenant_id, forecast_version_id, seed, solver_config_hash, input_hash,
	output_hash, status, locked_by, locked_at, solve_started_at, created_at, updated_at
	FROM plan_versions`

func scanPlan(row rowScanner) (*models.PlanVersion, error) {
	var plan models.PlanVersion
	var outputHash, lockedBy sql.NullString
	var lockedAt, solveStartedAt sql.NullTime
	var createdAt, updatedAt time.Time

	err := row.Scan(&plan.ID, &plan.TenantID, &plan.ForecastVersionID, &plan.Seed,
		&plan.SolverConfigHash, &plan.InputHash, &outputHash, &plan.Status,
		&lockedBy, &lockedAt, &solveStartedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	plan.OutputHash = outputHash.String
	plan.LockedBy = lockedBy.String
	if lockedAt.Valid {
		plan.LockedAt = lockedAt.Time.Format(time.RFC3339)
	}
	if solveStartedAt.Valid {
		plan.SolveStartedAt = solveStartedAt.Time.Format(time.RFC3339)
	}
	plan.CreatedAt = createdAt.Format(time.RFC3339)
	plan.UpdatedAt = updatedAt.Format(time.RFC3339)
	return &plan, nil
}

// Ensure PlanRepository implements the interface
var _ secondary.PlanRepository = (*PlanRepository)(nil)
