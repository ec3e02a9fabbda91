package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/roster/internal/ports/secondary"
)

// SolveLockRepository implements secondary.SolveLockRepository with SQLite.
// The primary key on (tenant_id, forecast_version_id) makes acquisition an
// atomic insert-if-absent, and the row survives process crashes so the
// recovery sweep can reclaim it.
type SolveLockRepository struct {
	db *sql.DB
}

// NewSolveLockRepository creates a new SQLite solve lock repository.
func NewSolveLockRepository(db *sql.DB) *SolveLockRepository {
	return &SolveLockRepository{db: db}
}

// Acquire attempts to take the lock. Returns false without blocking when
// another holder has it.
func (r *SolveLockRepository) Acquire(ctx context.Context, tenantID, forecastID, holder string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO solve_locks (tenant_id, forecast_version_id, holder)
		VALUES (?, ?, ?)
		ON CONFLICT (tenant_id, forecast_version_id) DO NOTHING`,
		tenantID, forecastID, holder,
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire solve lock: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected == 1, nil
}

// BindPlan records the plan version a held lock is serving, so recovery can
// find the plan from the lock row.
func (r *SolveLockRepository) BindPlan(ctx context.Context, holder, planID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE solve_locks SET plan_version_id = ? WHERE holder = ?",
		planID, holder,
	)
	if err != nil {
		return fmt.Errorf("failed to bind plan to solve lock: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("no solve lock held by %s", holder)
	}
	return nil
}

// Release drops the lock held by holder.
func (r *SolveLockRepository) Release(ctx context.Context, holder string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM solve_locks WHERE holder = ?", holder,
	)
	if err != nil {
		return fmt.Errorf("failed to release solve lock: %w", err)
	}
	return nil
}

// ReleaseByForecast drops whatever lock exists for the key. Used by the
// recovery sweep, which has no live holder.
func (r *SolveLockRepository) ReleaseByForecast(ctx context.Context, tenantID, forecastID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM solve_locks WHERE tenant_id = ? AND forecast_version_id = ?",
		tenantID, forecastID,
	)
	if err != nil {
		return fmt.Errorf("failed to release solve lock: %w", err)
	}
	return nil
}

// Ensure SolveLockRepository implements the interface
var _ secondary.SolveLockRepository = (*SolveLockRepository)(nil)
