// Package lifecycle contains the pure state-machine logic for forecast and
// plan versions. This is part of the Functional Core - no I/O, only pure
// functions. Transition legality lives in one explicit table instead of
// being scattered across call sites.
package lifecycle

// ForecastStatus represents the possible states of a forecast version.
type ForecastStatus string

const (
	ForecastIngested  ForecastStatus = "ingested"
	ForecastValidated ForecastStatus = "validated"
	ForecastWarn      ForecastStatus = "warn"
	ForecastFail      ForecastStatus = "fail"
	ForecastExpanded  ForecastStatus = "expanded"
)

// PlanStatus represents the possible states of a plan version.
type PlanStatus string

const (
	PlanSolving    PlanStatus = "solving"
	PlanSolved     PlanStatus = "solved"
	PlanAudited    PlanStatus = "audited"
	PlanDraft      PlanStatus = "draft"
	PlanLocked     PlanStatus = "locked"
	PlanFailed     PlanStatus = "failed"
	PlanSuperseded PlanStatus = "superseded"
)

// forecastTransitions is the closed from-state -> allowed-to-states table
// for forecast versions. fail is terminal: a failed forecast can never be
// expanded, and no plan may reference it.
var forecastTransitions = map[ForecastStatus][]ForecastStatus{
	ForecastIngested:  {ForecastValidated, ForecastWarn, ForecastFail},
	ForecastValidated: {ForecastExpanded},
	ForecastWarn:      {ForecastExpanded},
	ForecastFail:      {},
	ForecastExpanded:  {},
}

// planTransitions is the closed from-state -> allowed-to-states table for
// plan versions. failed is terminal (a new attempt is a new PlanVersion);
// superseded is terminal; locked only moves to superseded when a later plan
// for the same forecast locks.
var planTransitions = map[PlanStatus][]PlanStatus{
	PlanSolving:    {PlanSolved, PlanFailed},
	PlanSolved:     {PlanAudited},
	PlanAudited:    {PlanDraft, PlanFailed},
	PlanDraft:      {PlanLocked},
	PlanLocked:     {PlanSuperseded},
	PlanFailed:     {},
	PlanSuperseded: {},
}

// ForecastCanTransition reports whether a forecast may move from one status
// to another.
func ForecastCanTransition(from, to ForecastStatus) bool {
	for _, allowed := range forecastTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PlanCanTransition reports whether a plan may move from one status to
// another.
func PlanCanTransition(from, to PlanStatus) bool {
	for _, allowed := range planTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PlanIsTerminal reports whether a plan status admits no further
// transitions.
func PlanIsTerminal(status PlanStatus) bool {
	return len(planTransitions[status]) == 0
}

// TerminalPlanStatuses returns the plan statuses whose entry must be
// recorded in the audit log.
func TerminalPlanStatuses() []PlanStatus {
	return []PlanStatus{PlanLocked, PlanFailed, PlanSuperseded}
}
