package models

import "fmt"

// Conflict codes carried by ConflictError.
const (
	ConflictLockHeld            = "lock_held"
	ConflictIllegalTransition   = "illegal_transition"
	ConflictIdempotencyMismatch = "idempotency_conflict"
	ConflictFreezeWindow        = "freeze_window"
	ConflictDuplicateForecast   = "duplicate_forecast"
)

// ValidationError reports a malformed forecast. It blocks ingestion and is
// surfaced to the caller as-is.
type ValidationError struct {
	Line int
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid forecast (line %d): %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("invalid forecast: %s", e.Msg)
}

// ConflictError reports a request that cannot proceed in the current
// state: a held solve lock, an illegal state transition, a reused
// idempotency key with a different payload, or a freeze-window rejection.
// Never retried silently.
type ConflictError struct {
	Code string
	Msg  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict (%s): %s", e.Code, e.Msg)
}

// NewConflict builds a ConflictError with a formatted message.
func NewConflict(code, format string, args ...any) *ConflictError {
	return &ConflictError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CheckFailure is one failing check inside a ComplianceFailure.
type CheckFailure struct {
	Check          string
	ViolationCount int
	Details        string
}

// ComplianceFailure reports that one or more blocking audit checks failed.
// The plan state is intact (audited or failed); the report names every
// failing check.
type ComplianceFailure struct {
	PlanVersionID string
	Failed        []CheckFailure
}

func (e *ComplianceFailure) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = fmt.Sprintf("%s (%d violations)", f.Check, f.ViolationCount)
	}
	return fmt.Sprintf("plan %s failed blocking checks: %v", e.PlanVersionID, names)
}

// TransientSolverError reports a solver timeout or crash. The plan becomes
// failed via crash recovery and the caller starts a new attempt.
type TransientSolverError struct {
	PlanVersionID string
	Cause         error
}

func (e *TransientSolverError) Error() string {
	return fmt.Sprintf("solver failed for plan %s: %v", e.PlanVersionID, e.Cause)
}

func (e *TransientSolverError) Unwrap() error { return e.Cause }

// IntegrityViolation reports an attempted mutation of locked or append-only
// data. Always fatal for the calling operation and logged as a
// security-relevant event; never silently ignored.
type IntegrityViolation struct {
	Entity string
	ID     string
	Msg    string
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("integrity violation on %s %s: %s", e.Entity, e.ID, e.Msg)
}
