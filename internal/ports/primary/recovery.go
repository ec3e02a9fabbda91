package primary

import "context"

// SweepReport summarizes one crash-recovery sweep.
type SweepReport struct {
	Checked   int
	Recovered []string // plan ids moved solving -> failed
}

// RecoveryService resolves plans stuck mid-solve after abnormal
// termination. It is the only mechanism permitted to force a transition
// without a live caller.
type RecoveryService interface {
	// Sweep finds plans stuck in solving past the configured age, fails
	// them, releases their locks and records the action in the audit log.
	Sweep(ctx context.Context) (*SweepReport, error)

	// ForceRelease fails one specific stuck plan regardless of age. Reason
	// is mandatory and lands in the audit log.
	ForceRelease(ctx context.Context, planID, actor, reason string) error
}
