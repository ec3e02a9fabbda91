package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// AuditLogRepository implements secondary.AuditLogRepository with SQLite.
// The table is append-only; schema triggers abort updates and deletes.
type AuditLogRepository struct {
	db *sql.DB
}

// NewAuditLogRepository creates a new SQLite audit log repository.
func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// AppendBatch writes all entries of one audit run in a single transaction so
// no reader observes a partial run.
func (r *AuditLogRepository) AppendBatch(ctx context.Context, entries []*models.AuditLogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		createdAt, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("invalid audit entry timestamp %q: %w", e.CreatedAt, err)
		}
		var details any
		if e.Details != "" {
			details = e.Details
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO audit_log (id, plan_version_id, check_name, status, violation_count, details, actor, run_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.PlanVersionID, e.CheckName, e.Status, e.ViolationCount,
			details, e.Actor, e.RunID, createdAt.UTC().Format(sqliteTime),
		)
		if err != nil {
			return translateIntegrity(fmt.Errorf("failed to append audit entry: %w", err), "audit_log", e.ID)
		}
	}
	return tx.Commit()
}

// ListByPlan retrieves every entry for a plan, oldest first.
func (r *AuditLogRepository) ListByPlan(ctx context.Context, planID string) ([]*models.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		auditSelect+" WHERE plan_version_id = ? ORDER BY created_at, check_name",
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return collectAuditEntries(rows)
}

// LatestRun retrieves the entries of the most recent audit run for a plan.
// Lifecycle and override entries do not count as runs.
func (r *AuditLogRepository) LatestRun(ctx context.Context, planID string) ([]*models.AuditLogEntry, error) {
	var runID string
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id FROM audit_log
		WHERE plan_version_id = ? AND check_name NOT LIKE 'lifecycle.%' AND check_name NOT LIKE 'override.%'
		ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		planID,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest audit run: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		auditSelect+" WHERE plan_version_id = ? AND run_id = ? ORDER BY check_name",
		planID, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit run entries: %w", err)
	}
	return collectAuditEntries(rows)
}

const auditSelect = `SELECT id, plan_version_id, check_name, status, violation_count, details, actor, run_id, created_at
	FROM audit_log`

func collectAuditEntries(rows *sql.Rows) ([]*models.AuditLogEntry, error) {
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var details sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.PlanVersionID, &e.CheckName, &e.Status,
			&e.ViolationCount, &details, &e.Actor, &e.RunID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Details = details.String
		e.CreatedAt = createdAt.Format(time.RFC3339)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Ensure AuditLogRepository implements the interface
var _ secondary.AuditLogRepository = (*AuditLogRepository)(nil)
