package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/roster/internal/adapters/sqlite"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// setupPlanTestDB creates the test database with a forecast and instances to
// hang plans off.
func setupPlanTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB := setupTestDB(t)
	forecastID := seedForecast(t, testDB, "fv-001", "tenant-a")
	templateID := seedTemplate(t, testDB, "tt-001", forecastID)
	seedInstance(t, testDB, "ti-001", forecastID, templateID)
	seedInstance(t, testDB, "ti-002", forecastID, templateID)
	return testDB
}

func createTestPlan(t *testing.T, repo *sqlite.PlanRepository, ctx context.Context, id string) *models.PlanVersion {
	t.Helper()

	plan := &models.PlanVersion{
		ID:                id,
		TenantID:          "tenant-a",
		ForecastVersionID: "fv-001",
		Seed:              42,
		SolverConfigHash:  "cfg-hash",
		InputHash:         "in-hash",
	}
	if err := repo.Create(ctx, plan); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return plan
}

// solveAndDraft walks a fresh plan to draft: solving -> solved -> audited -> draft.
func solveAndDraft(t *testing.T, repo *sqlite.PlanRepository, ctx context.Context, planID string) {
	t.Helper()

	assignments := []*models.Assignment{
		{ID: planID + "-a1", PlanVersionID: planID, DriverID: "driver-001", TourInstanceID: "ti-001", Day: "2026-03-02", BlockID: "b1", Role: "driver"},
		{ID: planID + "-a2", PlanVersionID: planID, DriverID: "driver-002", TourInstanceID: "ti-002", Day: "2026-03-02", BlockID: "b2", Role: "driver"},
	}
	if err := repo.CompleteSolve(ctx, planID, "out-hash", assignments); err != nil {
		t.Fatalf("CompleteSolve failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, planID, models.PlanStatusSolved, models.PlanStatusAudited); err != nil {
		t.Fatalf("UpdateStatus to audited failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, planID, models.PlanStatusAudited, models.PlanStatusDraft); err != nil {
		t.Fatalf("UpdateStatus to draft failed: %v", err)
	}
}

func TestPlanRepository_Create(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")

	retrieved, err := repo.GetByID(ctx, "pv-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved.Status != models.PlanStatusSolving {
		t.Errorf("expected status 'solving', got '%s'", retrieved.Status)
	}
	if retrieved.Seed != 42 {
		t.Errorf("expected seed 42, got %d", retrieved.Seed)
	}
	if retrieved.SolveStartedAt == "" {
		t.Error("expected SolveStartedAt to be set")
	}
	if retrieved.OutputHash != "" {
		t.Errorf("expected empty output hash, got '%s'", retrieved.OutputHash)
	}
}

func TestPlanRepository_GetByID_NotFound(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "pv-999")
	if err == nil {
		t.Error("expected error for non-existent plan")
	}
}

func TestPlanRepository_CompleteSolve(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")

	assignments := []*models.Assignment{
		{ID: "a-001", PlanVersionID: "pv-001", DriverID: "driver-001", TourInstanceID: "ti-001", Day: "2026-03-02", BlockID: "b1", Role: "driver"},
	}
	if err := repo.CompleteSolve(ctx, "pv-001", "out-hash", assignments); err != nil {
		t.Fatalf("CompleteSolve failed: %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, "pv-001")
	if retrieved.Status != models.PlanStatusSolved {
		t.Errorf("expected status 'solved', got '%s'", retrieved.Status)
	}
	if retrieved.OutputHash != "out-hash" {
		t.Errorf("expected output hash 'out-hash', got '%s'", retrieved.OutputHash)
	}

	listed, err := repo.ListAssignments(ctx, "pv-001")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(listed))
	}
	if listed[0].DriverID != "driver-001" {
		t.Errorf("expected driver-001, got '%s'", listed[0].DriverID)
	}
}

func TestPlanRepository_CompleteSolve_NotSolving(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")
	if err := repo.UpdateStatus(ctx, "pv-001", models.PlanStatusSolving, models.PlanStatusFailed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	// A late solver completing after recovery failed the plan must not win.
	err := repo.CompleteSolve(ctx, "pv-001", "out-hash", nil)
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) || conflict.Code != models.ConflictIllegalTransition {
		t.Fatalf("expected illegal_transition conflict, got %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, "pv-001")
	if retrieved.Status != models.PlanStatusFailed {
		t.Errorf("expected status 'failed', got '%s'", retrieved.Status)
	}
	if retrieved.OutputHash != "" {
		t.Error("expected no output hash on failed plan")
	}
}

func TestPlanRepository_UpdateStatus_Guarded(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")

	// First transition wins.
	if err := repo.UpdateStatus(ctx, "pv-001", models.PlanStatusSolving, models.PlanStatusFailed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	// A second attempt from the stale status is a conflict, not a double
	// transition.
	err := repo.UpdateStatus(ctx, "pv-001", models.PlanStatusSolving, models.PlanStatusFailed)
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) || conflict.Code != models.ConflictIllegalTransition {
		t.Fatalf("expected illegal_transition conflict, got %v", err)
	}
}

func TestPlanRepository_Lock(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")
	solveAndDraft(t, repo, ctx, "pv-001")

	if err := repo.Lock(ctx, "pv-001", "dispatcher-1"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	retrieved, _ := repo.GetByID(ctx, "pv-001")
	if retrieved.Status != models.PlanStatusLocked {
		t.Errorf("expected status 'locked', got '%s'", retrieved.Status)
	}
	if retrieved.LockedBy != "dispatcher-1" {
		t.Errorf("expected locked_by 'dispatcher-1', got '%s'", retrieved.LockedBy)
	}
	if retrieved.LockedAt == "" {
		t.Error("expected LockedAt to be set")
	}
}

func TestPlanRepository_Lock_NotDraft(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")

	err := repo.Lock(ctx, "pv-001", "dispatcher-1")
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) || conflict.Code != models.ConflictIllegalTransition {
		t.Fatalf("expected illegal_transition conflict, got %v", err)
	}
}

func TestPlanRepository_LockedPlanImmutable(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")
	solveAndDraft(t, repo, ctx, "pv-001")
	if err := repo.Lock(ctx, "pv-001", "dispatcher-1"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Direct mutation of a locked plan is blocked at the storage boundary.
	_, err := db.Exec("UPDATE plan_versions SET output_hash = 'tampered' WHERE id = 'pv-001'")
	if err == nil {
		t.Fatal("expected trigger to block locked plan mutation")
	}
	if !strings.Contains(err.Error(), "integrity violation") {
		t.Errorf("expected integrity violation marker, got: %v", err)
	}

	// So is any change to its assignments.
	_, err = db.Exec("UPDATE assignments SET driver_id = 'driver-999' WHERE plan_version_id = 'pv-001'")
	if err == nil || !strings.Contains(err.Error(), "integrity violation") {
		t.Errorf("expected trigger to block assignment mutation, got: %v", err)
	}
	_, err = db.Exec("DELETE FROM assignments WHERE plan_version_id = 'pv-001'")
	if err == nil || !strings.Contains(err.Error(), "integrity violation") {
		t.Errorf("expected trigger to block assignment deletion, got: %v", err)
	}
	_, err = db.Exec("DELETE FROM plan_versions WHERE id = 'pv-001'")
	if err == nil || !strings.Contains(err.Error(), "integrity violation") {
		t.Errorf("expected trigger to block plan deletion, got: %v", err)
	}

	// Typed error from repository paths.
	err = repo.UpdateStatus(ctx, "pv-001", models.PlanStatusLocked, models.PlanStatusDraft)
	var violation *models.IntegrityViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected IntegrityViolation, got %v", err)
	}

	// The one permitted change: locked -> superseded.
	if err := repo.UpdateStatus(ctx, "pv-001", models.PlanStatusLocked, models.PlanStatusSuperseded); err != nil {
		t.Fatalf("locked -> superseded should be allowed: %v", err)
	}
}

func TestPlanRepository_SupersedeOthers(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	for _, id := range []string{"pv-001", "pv-002", "pv-003"} {
		createTestPlan(t, repo, ctx, id)
		solveAndDraft(t, repo, ctx, id)
	}
	if err := repo.Lock(ctx, "pv-001", "dispatcher-1"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := repo.Lock(ctx, "pv-002", "dispatcher-1"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	superseded, err := repo.SupersedeOthers(ctx, "fv-001", "pv-002")
	if err != nil {
		t.Fatalf("SupersedeOthers failed: %v", err)
	}
	if len(superseded) != 1 || superseded[0] != "pv-001" {
		t.Fatalf("expected [pv-001] superseded, got %v", superseded)
	}

	kept, _ := repo.GetByID(ctx, "pv-002")
	if kept.Status != models.PlanStatusLocked {
		t.Errorf("kept plan should stay locked, got '%s'", kept.Status)
	}
	old, _ := repo.GetByID(ctx, "pv-001")
	if old.Status != models.PlanStatusSuperseded {
		t.Errorf("expected 'superseded', got '%s'", old.Status)
	}
	// Draft plan untouched.
	draft, _ := repo.GetByID(ctx, "pv-003")
	if draft.Status != models.PlanStatusDraft {
		t.Errorf("draft plan should be untouched, got '%s'", draft.Status)
	}
}

func TestPlanRepository_FindStaleSolving(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-stale")
	createTestPlan(t, repo, ctx, "pv-fresh")

	_, err := db.Exec("UPDATE plan_versions SET solve_started_at = datetime('now', '-2 hours') WHERE id = 'pv-stale'")
	if err != nil {
		t.Fatalf("failed to backdate plan: %v", err)
	}

	stale, err := repo.FindStaleSolving(ctx, time.Now().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("FindStaleSolving failed: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "pv-stale" {
		t.Fatalf("expected [pv-stale], got %d plans", len(stale))
	}

	// Nothing is stale against a cutoff older than every start.
	stale, err = repo.FindStaleSolving(ctx, time.Now().Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("FindStaleSolving failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("expected no stale plans, got %d", len(stale))
	}
}

func TestPlanRepository_List(t *testing.T) {
	db := setupPlanTestDB(t)
	repo := sqlite.NewPlanRepository(db)
	ctx := context.Background()

	createTestPlan(t, repo, ctx, "pv-001")
	createTestPlan(t, repo, ctx, "pv-002")
	if err := repo.UpdateStatus(ctx, "pv-002", models.PlanStatusSolving, models.PlanStatusFailed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	plans, err := repo.List(ctx, secondary.PlanFilters{ForecastVersionID: "fv-001"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(plans) != 2 {
		t.Errorf("expected 2 plans, got %d", len(plans))
	}

	failed, err := repo.List(ctx, secondary.PlanFilters{Status: models.PlanStatusFailed})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "pv-002" {
		t.Errorf("expected [pv-002] failed, got %d plans", len(failed))
	}
}
