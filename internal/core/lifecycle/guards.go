package lifecycle

import (
	"fmt"
	"time"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CanExpand evaluates whether a forecast may be expanded into tour
// instances. Rules:
// - Forecast must have passed validation (validated or warn, never fail)
func CanExpand(status ForecastStatus) GuardResult {
	if status == ForecastFail {
		return deny("forecast failed validation and is permanently blocked")
	}
	if status != ForecastValidated && status != ForecastWarn {
		return deny("forecast must be validated before expansion (current status: %s)", status)
	}
	return allow()
}

// StartSolveContext provides context for the solve-start guard.
type StartSolveContext struct {
	ForecastStatus ForecastStatus
	LockHeld       bool
}

// CanStartSolve evaluates whether a new solve attempt may begin. Rules:
// - Forecast must be expanded (instances exist)
// - The caller must hold the per-(tenant, forecast) solve lock
func CanStartSolve(ctx StartSolveContext) GuardResult {
	if ctx.ForecastStatus == ForecastFail {
		return deny("forecast failed validation; no plan may reference it")
	}
	if ctx.ForecastStatus != ForecastExpanded {
		return deny("forecast is not expanded (current status: %s)", ctx.ForecastStatus)
	}
	if !ctx.LockHeld {
		return deny("solve lock is not held")
	}
	return allow()
}

// MarkAuditedContext provides context for the solved->audited guard.
type MarkAuditedContext struct {
	Status           PlanStatus
	ChecksRecorded   int
	ChecksRegistered int
}

// CanMarkAudited evaluates whether a plan may move to audited. Every
// registered check must have run; failing results do not block this
// transition (they block publishing instead).
func CanMarkAudited(ctx MarkAuditedContext) GuardResult {
	if !PlanCanTransition(ctx.Status, PlanAudited) {
		return deny("cannot audit plan in status %s", ctx.Status)
	}
	if ctx.ChecksRecorded < ctx.ChecksRegistered {
		return deny("only %d of %d registered checks have run", ctx.ChecksRecorded, ctx.ChecksRegistered)
	}
	return allow()
}

// PublishContext provides context for the draft->locked guard.
type PublishContext struct {
	Status           PlanStatus
	BlockingResults  map[string]string // check name -> pass/fail/warn
	HasLockAuthority bool
}

// CanPublish evaluates whether a plan may be locked for publication.
// Rules:
// - Plan must be in draft
// - Caller must hold lock authority
// - Every blocking check of the latest audit run must be pass
func CanPublish(ctx PublishContext) GuardResult {
	if !PlanCanTransition(ctx.Status, PlanLocked) {
		return deny("cannot lock plan in status %s", ctx.Status)
	}
	if !ctx.HasLockAuthority {
		return deny("caller does not hold lock authority")
	}
	for name, status := range ctx.BlockingResults {
		if status != "pass" {
			return deny("blocking check %s is %s, publication requires pass", name, status)
		}
	}
	return allow()
}

// FreezeContext provides context for the freeze-window guard.
type FreezeContext struct {
	Now           time.Time
	EarliestStart time.Time
	Window        time.Duration
	HasOverride   bool
	Justification string
}

// CheckFreezeWindow evaluates whether a mutating operation may touch tours
// that start within the freeze window. Overrides require justification text
// and are always logged by the caller.
func CheckFreezeWindow(ctx FreezeContext) GuardResult {
	if ctx.EarliestStart.IsZero() || ctx.Now.Add(ctx.Window).Before(ctx.EarliestStart) {
		return allow()
	}
	if !ctx.HasOverride {
		return deny("tours start within the %s freeze window (earliest %s); override required",
			ctx.Window, ctx.EarliestStart.Format(time.RFC3339))
	}
	if ctx.Justification == "" {
		return deny("freeze-window override requires justification text")
	}
	return allow()
}
