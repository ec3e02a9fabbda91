package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/roster/internal/config"
	"github.com/example/roster/internal/metrics"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/ports/secondary"
)

// RecoveryServiceImpl implements the RecoveryService interface. It is the
// only path allowed to move a plan out of solving without a live solve call.
type RecoveryServiceImpl struct {
	planRepo   secondary.PlanRepository
	lockRepo   secondary.SolveLockRepository
	auditRepo  secondary.AuditLogRepository
	staleAfter time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewRecoveryService creates a new RecoveryService with injected
// dependencies.
func NewRecoveryService(
	planRepo secondary.PlanRepository,
	lockRepo secondary.SolveLockRepository,
	auditRepo secondary.AuditLogRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *RecoveryServiceImpl {
	return &RecoveryServiceImpl{
		planRepo:   planRepo,
		lockRepo:   lockRepo,
		auditRepo:  auditRepo,
		staleAfter: time.Duration(cfg.Recovery.StaleSolveMinutes) * time.Minute,
		log:        log.With().Str("service", "recovery").Logger(),
		now:        time.Now,
	}
}

// Sweep fails every plan stuck in solving past the stale age and releases
// its solve lock. The guarded status update makes the sweep safe to run from
// several processes at once: whoever commits solving -> failed first recovers
// the plan, everyone else skips it.
func (s *RecoveryServiceImpl) Sweep(ctx context.Context) (*primary.SweepReport, error) {
	metrics.RecoverySweepsTotal.Inc()

	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.planRepo.FindStaleSolving(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report := &primary.SweepReport{Checked: len(stale)}
	for _, plan := range stale {
		recovered, err := s.recover(ctx, plan, "recovery", "stale solve reclaimed by sweep")
		if err != nil {
			return report, err
		}
		if recovered {
			report.Recovered = append(report.Recovered, plan.ID)
		}
	}
	if len(report.Recovered) > 0 {
		s.log.Info().Int("checked", report.Checked).
			Strs("recovered", report.Recovered).Msg("recovery sweep completed")
	}
	return report, nil
}

// ForceRelease fails one specific stuck plan regardless of age. Reason is
// mandatory and lands in the audit log.
func (s *RecoveryServiceImpl) ForceRelease(ctx context.Context, planID, actor, reason string) error {
	if actor == "" {
		return &models.ValidationError{Msg: "actor is required"}
	}
	if reason == "" {
		return &models.ValidationError{Msg: "a reason is required to force-release a plan"}
	}
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	if plan.Status != models.PlanStatusSolving {
		return models.NewConflict(models.ConflictIllegalTransition,
			"plan %s is %s, only solving plans can be force-released", plan.ID, plan.Status)
	}
	recovered, err := s.recover(ctx, plan, actor, reason)
	if err != nil {
		return err
	}
	if !recovered {
		return models.NewConflict(models.ConflictIllegalTransition,
			"plan %s left solving before the release committed", plan.ID)
	}
	return nil
}

// recover commits solving -> failed for one plan, drops its lock and records
// the event. Returns false when another actor won the transition.
func (s *RecoveryServiceImpl) recover(ctx context.Context, plan *models.PlanVersion, actor, reason string) (bool, error) {
	err := s.planRepo.UpdateStatus(ctx, plan.ID, models.PlanStatusSolving, models.PlanStatusFailed)
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.lockRepo.ReleaseByForecast(ctx, plan.TenantID, plan.ForecastVersionID); err != nil {
		return false, err
	}
	details, _ := json.Marshal(map[string]string{"reason": reason})
	if err := appendEvent(ctx, s.auditRepo, plan.ID, "lifecycle.failed",
		models.AuditStatusInfo, actor, string(details), s.now()); err != nil {
		return false, err
	}

	metrics.RecoveredPlansTotal.Inc()
	s.log.Warn().Str("plan_id", plan.ID).Str("actor", actor).Str("reason", reason).
		Msg("stuck plan recovered")
	return true, nil
}

// Ensure RecoveryServiceImpl implements the interface
var _ primary.RecoveryService = (*RecoveryServiceImpl)(nil)
