package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// IdempotencyRepository implements secondary.IdempotencyRepository with
// SQLite.
type IdempotencyRepository struct {
	db *sql.DB
}

// NewIdempotencyRepository creates a new SQLite idempotency repository.
func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get retrieves the record for a key, or nil when none exists or the record
// has expired. Expired rows are left for DeleteExpired to clean up.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*models.IdempotencyRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, request_hash, response, expires_at, created_at
		FROM idempotency_records WHERE key = ? AND expires_at > ?`,
		key, now.UTC().Format(sqliteTime),
	)

	var record models.IdempotencyRecord
	var expiresAt, createdAt time.Time
	err := row.Scan(&record.Key, &record.RequestHash, &record.Response, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	record.ExpiresAt = expiresAt.Format(time.RFC3339)
	record.CreatedAt = createdAt.Format(time.RFC3339)
	return &record, nil
}

// Put stores a record, replacing an expired one under the same key.
func (r *IdempotencyRepository) Put(ctx context.Context, record *models.IdempotencyRecord) error {
	expiresAt, err := time.Parse(time.RFC3339, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("invalid idempotency expiry %q: %w", record.ExpiresAt, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO idempotency_records (key, request_hash, response, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			request_hash = excluded.request_hash,
			response = excluded.response,
			expires_at = excluded.expires_at,
			created_at = CURRENT_TIMESTAMP
		WHERE idempotency_records.expires_at <= CURRENT_TIMESTAMP`,
		record.Key, record.RequestHash, record.Response, expiresAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("failed to put idempotency record: %w", err)
	}
	return nil
}

// DeleteExpired removes records whose TTL has passed.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM idempotency_records WHERE expires_at <= ?",
		now.UTC().Format(sqliteTime),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency records: %w", err)
	}
	return result.RowsAffected()
}

// Ensure IdempotencyRepository implements the interface
var _ secondary.IdempotencyRepository = (*IdempotencyRepository)(nil)
