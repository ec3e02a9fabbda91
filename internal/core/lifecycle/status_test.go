package lifecycle

import "testing"

func TestPlanTransitions(t *testing.T) {
	tests := []struct {
		from    PlanStatus
		to      PlanStatus
		allowed bool
	}{
		{PlanSolving, PlanSolved, true},
		{PlanSolving, PlanFailed, true},
		{PlanSolved, PlanAudited, true},
		{PlanAudited, PlanDraft, true},
		{PlanAudited, PlanFailed, true},
		{PlanDraft, PlanLocked, true},
		{PlanLocked, PlanSuperseded, true},

		{PlanSolving, PlanAudited, false},
		{PlanSolved, PlanDraft, false},
		{PlanDraft, PlanSolving, false},
		{PlanLocked, PlanDraft, false},
		{PlanLocked, PlanFailed, false},
		{PlanFailed, PlanSolving, false},
		{PlanFailed, PlanSolved, false},
		{PlanSuperseded, PlanLocked, false},
	}
	for _, tt := range tests {
		if got := PlanCanTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("PlanCanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestForecastTransitions(t *testing.T) {
	tests := []struct {
		from    ForecastStatus
		to      ForecastStatus
		allowed bool
	}{
		{ForecastIngested, ForecastValidated, true},
		{ForecastIngested, ForecastWarn, true},
		{ForecastIngested, ForecastFail, true},
		{ForecastValidated, ForecastExpanded, true},
		{ForecastWarn, ForecastExpanded, true},

		{ForecastFail, ForecastExpanded, false},
		{ForecastFail, ForecastValidated, false},
		{ForecastExpanded, ForecastIngested, false},
		{ForecastIngested, ForecastExpanded, false},
	}
	for _, tt := range tests {
		if got := ForecastCanTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("ForecastCanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestEveryPlanStatusHasTransitionRow(t *testing.T) {
	all := []PlanStatus{PlanSolving, PlanSolved, PlanAudited, PlanDraft, PlanLocked, PlanFailed, PlanSuperseded}
	for _, s := range all {
		if _, ok := planTransitions[s]; !ok {
			t.Errorf("status %s has no transition table row", s)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !PlanIsTerminal(PlanFailed) || !PlanIsTerminal(PlanSuperseded) {
		t.Error("failed and superseded must be terminal")
	}
	if PlanIsTerminal(PlanLocked) {
		t.Error("locked still transitions to superseded, not terminal")
	}
}
