package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/roster/internal/models"
)

func (e *testEnv) recoveryService() *RecoveryServiceImpl {
	return NewRecoveryService(e.plans, e.locks, e.audits, e.cfg, zerolog.Nop())
}

func seedSolvingPlan(t *testing.T, e *testEnv, planID, forecastID string) {
	t.Helper()
	err := e.plans.Create(context.Background(), &models.PlanVersion{
		ID:                planID,
		TenantID:          "tenant-a",
		ForecastVersionID: forecastID,
		Seed:              42,
		SolverConfigHash:  "cfg-hash",
		InputHash:         "hash-" + forecastID,
	})
	if err != nil {
		t.Fatalf("failed to seed plan: %v", err)
	}
}

func backdateSolveStart(t *testing.T, e *testEnv, planID string) {
	t.Helper()
	_, err := e.db.Exec(
		`UPDATE plan_versions SET solve_started_at = datetime('now', '-2 hours') WHERE id = ?`,
		planID)
	if err != nil {
		t.Fatalf("failed to backdate plan: %v", err)
	}
}

func TestRecoveryService_Sweep(t *testing.T) {
	env := newTestEnv(t)
	seedExpandedForecast(t, env, "fv-001", "tenant-a", 1)
	seedExpandedForecast(t, env, "fv-002", "tenant-a", 1)
	svc := env.recoveryService()

	// pv-stale crashed mid-solve two hours ago and still holds its lock;
	// pv-fresh started just now.
	seedSolvingPlan(t, env, "pv-stale", "fv-001")
	backdateSolveStart(t, env, "pv-stale")
	if _, err := env.locks.Acquire(context.Background(), "tenant-a", "fv-001", "crashed-holder"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := env.locks.BindPlan(context.Background(), "crashed-holder", "pv-stale"); err != nil {
		t.Fatalf("BindPlan failed: %v", err)
	}
	seedSolvingPlan(t, env, "pv-fresh", "fv-002")

	report, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.Checked != 1 {
		t.Errorf("expected 1 checked plan, got %d", report.Checked)
	}
	if len(report.Recovered) != 1 || report.Recovered[0] != "pv-stale" {
		t.Fatalf("expected pv-stale recovered, got %v", report.Recovered)
	}

	plan, err := env.plans.GetByID(context.Background(), "pv-stale")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if plan.Status != models.PlanStatusFailed {
		t.Errorf("expected failed, got %s", plan.Status)
	}

	fresh, err := env.plans.GetByID(context.Background(), "pv-fresh")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fresh.Status != models.PlanStatusSolving {
		t.Errorf("fresh plan must stay solving, got %s", fresh.Status)
	}

	// The dead holder's lock is gone.
	acquired, err := env.locks.Acquire(context.Background(), "tenant-a", "fv-001", "new-holder")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !acquired {
		t.Error("expected the stale lock to be released")
	}

	entries, err := env.audits.ListByPlan(context.Background(), "pv-stale")
	if err != nil {
		t.Fatalf("ListByPlan failed: %v", err)
	}
	if len(entries) != 1 || entries[0].CheckName != "lifecycle.failed" || entries[0].Actor != "recovery" {
		t.Fatalf("expected one lifecycle.failed entry by recovery, got %+v", entries)
	}

	// Nothing stale remains.
	report, err = svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if report.Checked != 0 || len(report.Recovered) != 0 {
		t.Errorf("expected an empty sweep, got %+v", report)
	}
}

func TestRecoveryService_ForceRelease(t *testing.T) {
	env := newTestEnv(t)
	seedExpandedForecast(t, env, "fv-001", "tenant-a", 1)
	svc := env.recoveryService()
	seedSolvingPlan(t, env, "pv-001", "fv-001")

	err := svc.ForceRelease(context.Background(), "pv-001", "ops@example.com", "")
	var validation *models.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected a validation error without a reason, got %v", err)
	}

	if err := svc.ForceRelease(context.Background(), "pv-001", "ops@example.com", "solver host decommissioned"); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	plan, err := env.plans.GetByID(context.Background(), "pv-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if plan.Status != models.PlanStatusFailed {
		t.Errorf("expected failed, got %s", plan.Status)
	}

	entries, err := env.audits.ListByPlan(context.Background(), "pv-001")
	if err != nil {
		t.Fatalf("ListByPlan failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Actor != "ops@example.com" {
		t.Fatalf("expected one entry by ops@example.com, got %+v", entries)
	}

	// Only solving plans may be force-released.
	err = svc.ForceRelease(context.Background(), "pv-001", "ops@example.com", "again")
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) || conflict.Code != models.ConflictIllegalTransition {
		t.Fatalf("expected illegal_transition conflict, got %v", err)
	}
}
