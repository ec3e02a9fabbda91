// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/roster/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// An in-memory database exists per connection; keep the pool at one so
	// every statement sees the same schema.
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedForecast inserts a test forecast version and returns its ID.
func seedForecast(t *testing.T, db *sql.DB, id, tenantID string) string {
	t.Helper()
	if id == "" {
		id = "fv-001"
	}
	if tenantID == "" {
		tenantID = "tenant-a"
	}
	_, err := db.Exec(
		`INSERT INTO forecast_versions (id, tenant_id, input_hash, raw_text, week_anchor_date, status)
		VALUES (?, ?, ?, 'weekday,start,end,headcount,depot,skill', '2026-03-02', 'expanded')`,
		id, tenantID, "hash-"+id,
	)
	if err != nil {
		t.Fatalf("failed to seed forecast: %v", err)
	}
	return id
}

// seedTemplate inserts a test tour template and returns its ID.
func seedTemplate(t *testing.T, db *sql.DB, id, forecastID string) string {
	t.Helper()
	if id == "" {
		id = "tt-001"
	}
	_, err := db.Exec(
		`INSERT INTO tour_templates (id, forecast_version_id, weekday, start_time, end_time, headcount, depot, skill)
		VALUES (?, ?, 0, '08:00', '16:00', 1, 'north', 'standard')`,
		id, forecastID,
	)
	if err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	return id
}

// seedInstance inserts a test tour instance and returns its ID.
func seedInstance(t *testing.T, db *sql.DB, id, forecastID, templateID string) string {
	t.Helper()
	if id == "" {
		id = "ti-001"
	}
	_, err := db.Exec(
		`INSERT INTO tour_instances (id, forecast_version_id, template_id, fingerprint, day, start_time, end_time, depot, skill, slot)
		VALUES (?, ?, ?, ?, '2026-03-02', '08:00', '16:00', 'north', 'standard', 0)`,
		id, forecastID, templateID, "fp-"+id,
	)
	if err != nil {
		t.Fatalf("failed to seed instance: %v", err)
	}
	return id
}
