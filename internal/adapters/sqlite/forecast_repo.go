package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// ForecastRepository implements secondary.ForecastRepository with SQLite.
type ForecastRepository struct {
	db *sql.DB
}

// NewForecastRepository creates a new SQLite forecast repository.
func NewForecastRepository(db *sql.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Create persists a new forecast version.
func (r *ForecastRepository) Create(ctx context.Context, forecast *models.ForecastVersion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO forecast_versions (id, tenant_id, input_hash, raw_text, week_anchor_date, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		forecast.ID, forecast.TenantID, forecast.InputHash, forecast.RawText,
		forecast.WeekAnchorDate, forecast.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create forecast version: %w", err)
	}
	return nil
}

// GetByID retrieves a forecast version by its ID.
func (r *ForecastRepository) GetByID(ctx context.Context, id string) (*models.ForecastVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, input_hash, raw_text, week_anchor_date, status, created_at
		FROM forecast_versions WHERE id = ?`, id)
	forecast, err := scanForecast(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("forecast version %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast version: %w", err)
	}
	return forecast, nil
}

// FindByInputHash retrieves the forecast with the given identity, or nil.
func (r *ForecastRepository) FindByInputHash(ctx context.Context, tenantID, inputHash string) (*models.ForecastVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, input_hash, raw_text, week_anchor_date, status, created_at
		FROM forecast_versions WHERE tenant_id = ? AND input_hash = ?`, tenantID, inputHash)
	forecast, err := scanForecast(row)
	if err == sql.ErrNoRows {
		return nil, nil // not ingested yet is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find forecast by input hash: %w", err)
	}
	return forecast, nil
}

// UpdateStatus moves a forecast between statuses with a guarded update.
func (r *ForecastRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE forecast_versions SET status = ? WHERE id = ? AND status = ?",
		to, id, from,
	)
	if err != nil {
		return translateIntegrity(fmt.Errorf("failed to update forecast status: %w", err), "forecast_version", id)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return models.NewConflict(models.ConflictIllegalTransition,
			"forecast %s is not in status %s", id, from)
	}
	return nil
}

// CreateTemplates persists the parsed tour templates of a forecast.
func (r *ForecastRepository) CreateTemplates(ctx context.Context, templates []*models.TourTemplate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range templates {
		var splitGroup any
		if t.SplitGroup != "" {
			splitGroup = t.SplitGroup
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tour_templates (id, forecast_version_id, weekday, start_time, end_time, headcount, depot, skill, split_group, cross_midnight)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.ForecastVersionID, t.Weekday, t.StartTime, t.EndTime,
			t.Headcount, t.Depot, t.Skill, splitGroup, boolToInt(t.CrossMidnight),
		)
		if err != nil {
			return fmt.Errorf("failed to create tour template: %w", err)
		}
	}
	return tx.Commit()
}

// CreateInstances persists the expanded tour instances of a forecast.
func (r *ForecastRepository) CreateInstances(ctx context.Context, instances []*models.TourInstance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, inst := range instances {
		var splitGroup any
		if inst.SplitGroup != "" {
			splitGroup = inst.SplitGroup
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tour_instances (id, forecast_version_id, template_id, fingerprint, day, start_time, end_time, depot, skill, split_group, cross_midnight, slot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inst.ID, inst.ForecastVersionID, inst.TemplateID, inst.Fingerprint,
			inst.Day, inst.StartTime, inst.EndTime, inst.Depot, inst.Skill,
			splitGroup, boolToInt(inst.CrossMidnight), inst.Slot,
		)
		if err != nil {
			return fmt.Errorf("failed to create tour instance: %w", err)
		}
	}
	return tx.Commit()
}

// ListInstances retrieves every tour instance of a forecast.
func (r *ForecastRepository) ListInstances(ctx context.Context, forecastID string) ([]*models.TourInstance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, forecast_version_id, template_id, fingerprint, day, start_time, end_time, depot, skill, split_group, cross_midnight, slot
		FROM tour_instances WHERE forecast_version_id = ? ORDER BY day, start_time, id`,
		forecastID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tour instances: %w", err)
	}
	defer rows.Close()

	var instances []*models.TourInstance
	for rows.Next() {
		var inst models.TourInstance
		var splitGroup sql.NullString
		var crossMidnight int
		if err := rows.Scan(&inst.ID, &inst.ForecastVersionID, &inst.TemplateID,
			&inst.Fingerprint, &inst.Day, &inst.StartTime, &inst.EndTime,
			&inst.Depot, &inst.Skill, &splitGroup, &crossMidnight, &inst.Slot); err != nil {
			return nil, fmt.Errorf("failed to scan tour instance: %w", err)
		}
		inst.SplitGroup = splitGroup.String
		inst.CrossMidnight = crossMidnight != 0
		instances = append(instances, &inst)
	}
	return instances, rows.Err()
}

// List retrieves forecast versions matching the given filters.
func (r *ForecastRepository) List(ctx context.Context, filters secondary.ForecastFilters) ([]*models.ForecastVersion, error) {
	query := `SELECT id, tenant_id, input_hash, raw_text, week_anchor_date, status, created_at
		FROM forecast_versions WHERE 1=1`
	args := []any{}

	if filters.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, filters.TenantID)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast versions: %w", err)
	}
	defer rows.Close()

	var forecasts []*models.ForecastVersion
	for rows.Next() {
		forecast, err := scanForecast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast version: %w", err)
		}
		forecasts = append(forecasts, forecast)
	}
	return forecasts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForecast(row rowScanner) (*models.ForecastVersion, error) {
	var forecast models.ForecastVersion
	var createdAt time.Time
	err := row.Scan(&forecast.ID, &forecast.TenantID, &forecast.InputHash,
		&forecast.RawText, &forecast.WeekAnchorDate, &forecast.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	forecast.CreatedAt = createdAt.Format(time.RFC3339)
	return &forecast, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure ForecastRepository implements the interface
var _ secondary.ForecastRepository = (*ForecastRepository)(nil)
