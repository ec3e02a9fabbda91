package lifecycle

import (
	"testing"
	"time"
)

func TestCanExpand(t *testing.T) {
	tests := []struct {
		status  ForecastStatus
		allowed bool
	}{
		{ForecastValidated, true},
		{ForecastWarn, true},
		{ForecastFail, false},
		{ForecastIngested, false},
		{ForecastExpanded, false},
	}
	for _, tt := range tests {
		if got := CanExpand(tt.status); got.Allowed != tt.allowed {
			t.Errorf("CanExpand(%s) = %v, want %v (%s)", tt.status, got.Allowed, tt.allowed, got.Reason)
		}
	}
}

func TestCanStartSolve(t *testing.T) {
	result := CanStartSolve(StartSolveContext{ForecastStatus: ForecastExpanded, LockHeld: true})
	if !result.Allowed {
		t.Errorf("expected solve allowed, got: %s", result.Reason)
	}

	result = CanStartSolve(StartSolveContext{ForecastStatus: ForecastExpanded, LockHeld: false})
	if result.Allowed {
		t.Error("solve must require the lock")
	}

	result = CanStartSolve(StartSolveContext{ForecastStatus: ForecastFail, LockHeld: true})
	if result.Allowed {
		t.Error("solve must never run against a failed forecast")
	}
}

func TestCanMarkAudited(t *testing.T) {
	result := CanMarkAudited(MarkAuditedContext{Status: PlanSolved, ChecksRecorded: 7, ChecksRegistered: 7})
	if !result.Allowed {
		t.Errorf("expected audited allowed, got: %s", result.Reason)
	}

	result = CanMarkAudited(MarkAuditedContext{Status: PlanSolved, ChecksRecorded: 6, ChecksRegistered: 7})
	if result.Allowed {
		t.Error("audited requires every registered check to have run")
	}

	result = CanMarkAudited(MarkAuditedContext{Status: PlanDraft, ChecksRecorded: 7, ChecksRegistered: 7})
	if result.Allowed {
		t.Error("only solved plans can become audited")
	}
}

func TestCanPublish(t *testing.T) {
	passing := map[string]string{"coverage": "pass", "overlap": "pass"}

	result := CanPublish(PublishContext{Status: PlanDraft, BlockingResults: passing, HasLockAuthority: true})
	if !result.Allowed {
		t.Errorf("expected publish allowed, got: %s", result.Reason)
	}

	result = CanPublish(PublishContext{Status: PlanDraft, BlockingResults: passing, HasLockAuthority: false})
	if result.Allowed {
		t.Error("publish requires lock authority")
	}

	failing := map[string]string{"coverage": "fail"}
	result = CanPublish(PublishContext{Status: PlanDraft, BlockingResults: failing, HasLockAuthority: true})
	if result.Allowed {
		t.Error("a failing blocking check must prevent locking")
	}

	result = CanPublish(PublishContext{Status: PlanAudited, BlockingResults: passing, HasLockAuthority: true})
	if result.Allowed {
		t.Error("only draft plans can be locked")
	}
}

func TestCheckFreezeWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	window := 12 * time.Hour

	// Earliest tour well outside the window.
	result := CheckFreezeWindow(FreezeContext{Now: now, EarliestStart: now.Add(48 * time.Hour), Window: window})
	if !result.Allowed {
		t.Errorf("expected allowed outside window, got: %s", result.Reason)
	}

	// Inside the window without override.
	result = CheckFreezeWindow(FreezeContext{Now: now, EarliestStart: now.Add(2 * time.Hour), Window: window})
	if result.Allowed {
		t.Error("mutation inside the freeze window must be rejected without override")
	}

	// Inside the window with override but no justification.
	result = CheckFreezeWindow(FreezeContext{
		Now: now, EarliestStart: now.Add(2 * time.Hour), Window: window, HasOverride: true,
	})
	if result.Allowed {
		t.Error("override without justification must be rejected")
	}

	// Inside the window with override and justification.
	result = CheckFreezeWindow(FreezeContext{
		Now: now, EarliestStart: now.Add(2 * time.Hour), Window: window,
		HasOverride: true, Justification: "emergency re-roster after depot closure",
	})
	if !result.Allowed {
		t.Errorf("expected override to pass, got: %s", result.Reason)
	}

	// No tours at all.
	result = CheckFreezeWindow(FreezeContext{Now: now, Window: window})
	if !result.Allowed {
		t.Error("a forecast without instances is never frozen")
	}
}
