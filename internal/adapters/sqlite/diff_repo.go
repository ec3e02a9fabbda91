package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// DiffRepository implements secondary.DiffRepository with SQLite. A computed
// diff is cached per ordered (old, new) id pair; both versions are immutable
// so the cache never goes stale.
type DiffRepository struct {
	db *sql.DB
}

// NewDiffRepository creates a new SQLite diff repository.
func NewDiffRepository(db *sql.DB) *DiffRepository {
	return &DiffRepository{db: db}
}

// Get retrieves a cached diff for the ordered id pair. found distinguishes
// "never computed" from a computed empty diff.
func (r *DiffRepository) Get(ctx context.Context, oldForecastID, newForecastID string) ([]*models.DiffEntry, bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM diff_runs WHERE old_forecast_id = ? AND new_forecast_id = ?",
		oldForecastID, newForecastID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to check diff cache: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT old_forecast_id, new_forecast_id, fingerprint, diff_type, count, detail
		FROM diff_entries WHERE old_forecast_id = ? AND new_forecast_id = ?
		ORDER BY fingerprint, diff_type`,
		oldForecastID, newForecastID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list diff entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DiffEntry
	for rows.Next() {
		var e models.DiffEntry
		var detail sql.NullString
		if err := rows.Scan(&e.OldForecastID, &e.NewForecastID, &e.Fingerprint,
			&e.Type, &e.Count, &detail); err != nil {
			return nil, false, fmt.Errorf("failed to scan diff entry: %w", err)
		}
		e.Detail = detail.String
		entries = append(entries, &e)
	}
	return entries, true, rows.Err()
}

// Put caches a computed diff for the ordered id pair.
func (r *DiffRepository) Put(ctx context.Context, oldForecastID, newForecastID string, entries []*models.DiffEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO diff_runs (old_forecast_id, new_forecast_id) VALUES (?, ?)",
		oldForecastID, newForecastID,
	)
	if err != nil {
		return fmt.Errorf("failed to record diff run: %w", err)
	}

	for _, e := range entries {
		var detail any
		if e.Detail != "" {
			detail = e.Detail
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO diff_entries (old_forecast_id, new_forecast_id, fingerprint, diff_type, count, detail)
			VALUES (?, ?, ?, ?, ?, ?)`,
			oldForecastID, newForecastID, e.Fingerprint, e.Type, e.Count, detail,
		)
		if err != nil {
			return fmt.Errorf("failed to cache diff entry: %w", err)
		}
	}
	return tx.Commit()
}

// Ensure DiffRepository implements the interface
var _ secondary.DiffRepository = (*DiffRepository)(nil)
