package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/roster/internal/adapters/sqlite"
	"github.com/example/roster/internal/models"
)

func TestIdempotencyRepository_PutAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	record := &models.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "req-hash",
		Response:    `{"forecast_version_id":"fv-001"}`,
		ExpiresAt:   now.Add(24 * time.Hour).Format(time.RFC3339),
	}
	if err := repo.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "key-1", now)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record")
	}
	if got.RequestHash != "req-hash" {
		t.Errorf("expected request hash 'req-hash', got '%s'", got.RequestHash)
	}
	if got.Response != record.Response {
		t.Errorf("unexpected response: %s", got.Response)
	}

	got, err = repo.Get(ctx, "key-missing", now)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown key")
	}
}

func TestIdempotencyRepository_Expiry(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	record := &models.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "req-hash",
		Response:    "{}",
		ExpiresAt:   now.Add(time.Hour).Format(time.RFC3339),
	}
	if err := repo.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Still live just before expiry, gone just after.
	got, err := repo.Get(ctx, "key-1", now.Add(59*time.Minute))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record before expiry")
	}

	got, err = repo.Get(ctx, "key-1", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil after expiry")
	}
}

func TestIdempotencyRepository_PutDoesNotReplaceLive(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.Put(ctx, &models.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "original",
		Response:    "{}",
		ExpiresAt:   now.Add(time.Hour).Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// A second Put under a live key must not overwrite the stored response;
	// conflict detection happens above this layer by comparing hashes.
	if err := repo.Put(ctx, &models.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "intruder",
		Response:    "{}",
		ExpiresAt:   now.Add(time.Hour).Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "key-1", now)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RequestHash != "original" {
		t.Errorf("live record was replaced: %s", got.RequestHash)
	}
}

func TestIdempotencyRepository_PutReplacesExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.Put(ctx, &models.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "stale",
		Response:    "{}",
		ExpiresAt:   now.Add(-time.Hour).Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := repo.Put(ctx, &models.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "fresh",
		Response:    "{}",
		ExpiresAt:   now.Add(time.Hour).Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "key-1", now)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.RequestHash != "fresh" {
		t.Fatalf("expected expired record to be replaced, got %+v", got)
	}
}

func TestIdempotencyRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewIdempotencyRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, r := range []*models.IdempotencyRecord{
		{Key: "live", RequestHash: "h", Response: "{}", ExpiresAt: now.Add(time.Hour).Format(time.RFC3339)},
		{Key: "dead-1", RequestHash: "h", Response: "{}", ExpiresAt: now.Add(-time.Hour).Format(time.RFC3339)},
		{Key: "dead-2", RequestHash: "h", Response: "{}", ExpiresAt: now.Add(-2 * time.Hour).Format(time.RFC3339)},
	} {
		if err := repo.Put(ctx, r); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	got, _ := repo.Get(ctx, "live", now)
	if got == nil {
		t.Error("live record should survive the sweep")
	}
}
