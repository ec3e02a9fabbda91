package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/roster/internal/config"
	"github.com/example/roster/internal/core/fingerprint"
	"github.com/example/roster/internal/core/lifecycle"
	"github.com/example/roster/internal/metrics"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/ports/secondary"
)

// PlanServiceImpl implements the PlanService interface. It owns the solve
// pipeline: lock, create, solve, audit, draft-or-fail.
type PlanServiceImpl struct {
	planRepo     secondary.PlanRepository
	forecastRepo secondary.ForecastRepository
	auditRepo    secondary.AuditLogRepository
	lockRepo     secondary.SolveLockRepository
	solver       secondary.Solver
	runner       *auditRunner
	gate         *idempotencyGate
	cfg          *config.Config
	log          zerolog.Logger
	now          func() time.Time
}

// NewPlanService creates a new PlanService with injected dependencies.
func NewPlanService(
	planRepo secondary.PlanRepository,
	forecastRepo secondary.ForecastRepository,
	auditRepo secondary.AuditLogRepository,
	lockRepo secondary.SolveLockRepository,
	idempotencyRepo secondary.IdempotencyRepository,
	solver secondary.Solver,
	cfg *config.Config,
	log zerolog.Logger,
) *PlanServiceImpl {
	return &PlanServiceImpl{
		planRepo:     planRepo,
		forecastRepo: forecastRepo,
		auditRepo:    auditRepo,
		lockRepo:     lockRepo,
		solver:       solver,
		runner:       newAuditRunner(auditRepo, solver, cfg.CheckConfig()),
		gate:         newIdempotencyGate(idempotencyRepo, time.Duration(cfg.Idempotency.TTLHours)*time.Hour),
		cfg:          cfg,
		log:          log.With().Str("service", "plan").Logger(),
		now:          time.Now,
	}
}

// solveReceipt is the idempotency payload of a completed solve.
type solveReceipt struct {
	PlanVersionID string `json:"plan_version_id"`
}

// publishReceipt is the idempotency payload of a completed publication.
type publishReceipt struct {
	PlanVersionID string   `json:"plan_version_id"`
	Superseded    []string `json:"superseded"`
}

// SolvePlan runs one solve attempt end to end. The plan it creates always
// reaches a stable status: draft when every blocking check passed, failed
// otherwise. Concurrent attempts on the same forecast are rejected with a
// lock_held conflict instead of queueing.
func (s *PlanServiceImpl) SolvePlan(ctx context.Context, req primary.SolvePlanRequest) (*primary.SolvePlanResponse, error) {
	if req.TenantID == "" || req.ForecastVersionID == "" {
		return nil, &models.ValidationError{Msg: "tenant id and forecast version id are required"}
	}
	if req.Override && req.Justification == "" {
		return nil, &models.ValidationError{Msg: "freeze-window override requires justification"}
	}

	configHash, err := fingerprint.Config(req.SolverConfig)
	if err != nil {
		return nil, err
	}
	reqHash := requestHash("solve", req.TenantID, req.ForecastVersionID,
		fmt.Sprintf("%d", req.Seed), configHash)
	if record, err := s.gate.check(ctx, req.IdempotencyKey, reqHash); err != nil {
		return nil, err
	} else if record != nil {
		return s.replaySolve(ctx, record)
	}

	forecast, err := s.forecastRepo.GetByID(ctx, req.ForecastVersionID)
	if err != nil {
		return nil, err
	}
	instances, err := s.forecastRepo.ListInstances(ctx, forecast.ID)
	if err != nil {
		return nil, err
	}

	frozen, err := s.checkFreeze(instances, req.Override, req.Justification)
	if err != nil {
		return nil, err
	}

	holder := uuid.NewString()
	acquired, err := s.lockRepo.Acquire(ctx, req.TenantID, forecast.ID, holder)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire solve lock: %w", err)
	}
	if !acquired {
		metrics.SolvesTotal.WithLabelValues("busy").Inc()
		return nil, models.NewConflict(models.ConflictLockHeld,
			"a solve is already running for forecast %s", forecast.ID)
	}
	defer func() {
		if err := s.lockRepo.Release(ctx, holder); err != nil {
			s.log.Error().Err(err).Str("holder", holder).Msg("failed to release solve lock")
		}
	}()

	if guard := lifecycle.CanStartSolve(lifecycle.StartSolveContext{
		ForecastStatus: lifecycle.ForecastStatus(forecast.Status),
		LockHeld:       true,
	}); !guard.Allowed {
		return nil, models.NewConflict(models.ConflictIllegalTransition, "%s", guard.Reason)
	}

	plan := &models.PlanVersion{
		ID:                uuid.NewString(),
		TenantID:          req.TenantID,
		ForecastVersionID: forecast.ID,
		Seed:              req.Seed,
		SolverConfigHash:  configHash,
		InputHash:         forecast.InputHash,
		Status:            models.PlanStatusSolving,
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	if err := s.lockRepo.BindPlan(ctx, holder, plan.ID); err != nil {
		return nil, err
	}
	if frozen {
		details, _ := json.Marshal(map[string]string{"justification": req.Justification})
		if err := appendEvent(ctx, s.auditRepo, plan.ID, "override.freeze_window",
			models.AuditStatusInfo, "caller", string(details), s.now()); err != nil {
			return nil, err
		}
	}

	solveCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Solver.TimeoutSeconds)*time.Second)
	defer cancel()
	solved, err := s.solver.Solve(solveCtx, secondary.SolveRequest{
		Instances: instances,
		Seed:      req.Seed,
		Config:    req.SolverConfig,
	})
	if err != nil {
		s.failPlan(ctx, plan.ID, "solver error: "+err.Error())
		metrics.SolvesTotal.WithLabelValues("failed").Inc()
		return nil, &models.TransientSolverError{PlanVersionID: plan.ID, Cause: err}
	}

	assignments := make([]*models.Assignment, len(solved.Assignments))
	keys := make([]fingerprint.AssignmentKey, len(solved.Assignments))
	for i, a := range solved.Assignments {
		assignments[i] = &models.Assignment{
			ID:             uuid.NewString(),
			PlanVersionID:  plan.ID,
			DriverID:       a.DriverID,
			TourInstanceID: a.TourInstanceID,
			Day:            a.Day,
			BlockID:        a.BlockID,
			Role:           a.Role,
			Metadata:       a.Metadata,
		}
		keys[i] = fingerprint.AssignmentKey{
			DriverID:       a.DriverID,
			TourInstanceID: a.TourInstanceID,
			Day:            a.Day,
			BlockID:        a.BlockID,
			Role:           a.Role,
		}
	}
	plan.OutputHash = fingerprint.Output(keys)
	if err := s.planRepo.CompleteSolve(ctx, plan.ID, plan.OutputHash, assignments); err != nil {
		return nil, err
	}
	plan.Status = models.PlanStatusSolved

	outcome, err := s.runner.run(ctx, plan, assignments, instances, req.SolverConfig)
	if err != nil {
		s.failPlan(ctx, plan.ID, "audit run failed: "+err.Error())
		metrics.SolvesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if guard := lifecycle.CanMarkAudited(lifecycle.MarkAuditedContext{
		Status:           lifecycle.PlanStatus(plan.Status),
		ChecksRecorded:   outcome.checksRecorded,
		ChecksRegistered: outcome.checksRegistered,
	}); !guard.Allowed {
		return nil, models.NewConflict(models.ConflictIllegalTransition, "%s", guard.Reason)
	}
	if err := s.planRepo.UpdateStatus(ctx, plan.ID, models.PlanStatusSolved, models.PlanStatusAudited); err != nil {
		return nil, err
	}
	plan.Status = models.PlanStatusAudited

	if len(outcome.blockingFailed) > 0 {
		if err := s.planRepo.UpdateStatus(ctx, plan.ID, models.PlanStatusAudited, models.PlanStatusFailed); err != nil {
			return nil, err
		}
		plan.Status = models.PlanStatusFailed
		names, _ := json.Marshal(checkNames(outcome.blockingFailed))
		if err := appendEvent(ctx, s.auditRepo, plan.ID, "lifecycle.failed",
			models.AuditStatusInfo, "system", string(names), s.now()); err != nil {
			return nil, err
		}
		metrics.SolvesTotal.WithLabelValues("failed").Inc()
		s.log.Warn().Str("plan_id", plan.ID).Int("failed_checks", len(outcome.blockingFailed)).
			Msg("plan failed blocking checks")
	} else {
		if err := s.planRepo.UpdateStatus(ctx, plan.ID, models.PlanStatusAudited, models.PlanStatusDraft); err != nil {
			return nil, err
		}
		plan.Status = models.PlanStatusDraft
		if err := appendEvent(ctx, s.auditRepo, plan.ID, "lifecycle.draft",
			models.AuditStatusInfo, "system", "", s.now()); err != nil {
			return nil, err
		}
		if err := s.gate.store(ctx, req.IdempotencyKey, reqHash, solveReceipt{PlanVersionID: plan.ID}); err != nil {
			return nil, err
		}
		metrics.SolvesTotal.WithLabelValues("draft").Inc()
		s.log.Info().Str("plan_id", plan.ID).Str("output_hash", plan.OutputHash).Msg("plan drafted")
	}

	refreshed, err := s.planRepo.GetByID(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	return &primary.SolvePlanResponse{Plan: refreshed, CheckResults: outcome.entries}, nil
}

// checkFreeze rejects solves and publishes whose forecast's earliest tour
// starts inside the freeze window unless the caller overrides with
// justification. Returns whether the window applied (and was overridden).
func (s *PlanServiceImpl) checkFreeze(instances []*models.TourInstance, override bool, justification string) (bool, error) {
	earliest := earliestStart(instances)
	window := time.Duration(s.cfg.Publish.FreezeWindowHours) * time.Hour
	guard := lifecycle.CheckFreezeWindow(lifecycle.FreezeContext{
		Now:           s.now(),
		EarliestStart: earliest,
		Window:        window,
		HasOverride:   override,
		Justification: justification,
	})
	if !guard.Allowed {
		return false, models.NewConflict(models.ConflictFreezeWindow, "%s", guard.Reason)
	}
	frozen := !earliest.IsZero() && !s.now().Add(window).Before(earliest)
	return frozen && override, nil
}

func earliestStart(instances []*models.TourInstance) time.Time {
	var earliest time.Time
	for _, inst := range instances {
		day, err := time.Parse("2006-01-02", inst.Day)
		if err != nil {
			continue
		}
		t, err := time.Parse("15:04", inst.StartTime)
		if err != nil {
			continue
		}
		start := day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		if earliest.IsZero() || start.Before(earliest) {
			earliest = start
		}
	}
	return earliest
}

func checkNames(failures []models.CheckFailure) []string {
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Check
	}
	return names
}

// failPlan moves a plan to failed on a best-effort basis; losing the race to
// the recovery sweep is fine.
func (s *PlanServiceImpl) failPlan(ctx context.Context, planID, reason string) {
	if err := s.planRepo.UpdateStatus(ctx, planID, models.PlanStatusSolving, models.PlanStatusFailed); err != nil {
		s.log.Error().Err(err).Str("plan_id", planID).Msg("failed to fail plan")
		return
	}
	details, _ := json.Marshal(map[string]string{"reason": reason})
	if err := appendEvent(ctx, s.auditRepo, planID, "lifecycle.failed",
		models.AuditStatusInfo, "system", string(details), s.now()); err != nil {
		s.log.Error().Err(err).Str("plan_id", planID).Msg("failed to record failure")
	}
}

func (s *PlanServiceImpl) replaySolve(ctx context.Context, record *models.IdempotencyRecord) (*primary.SolvePlanResponse, error) {
	var receipt solveReceipt
	if err := json.Unmarshal([]byte(record.Response), &receipt); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	plan, err := s.planRepo.GetByID(ctx, receipt.PlanVersionID)
	if err != nil {
		return nil, err
	}
	results, err := s.auditRepo.LatestRun(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	return &primary.SolvePlanResponse{Plan: plan, CheckResults: results, Replayed: true}, nil
}

// PublishPlan performs draft -> locked. Every blocking check of the latest
// audit run must be pass and the freeze window must not apply; locking
// supersedes any previously locked plan of the same forecast.
func (s *PlanServiceImpl) PublishPlan(ctx context.Context, req primary.PublishPlanRequest) (*primary.PublishPlanResponse, error) {
	if req.Actor == "" {
		return nil, &models.ValidationError{Msg: "actor is required to lock a plan"}
	}
	if req.Override && req.Justification == "" {
		return nil, &models.ValidationError{Msg: "freeze-window override requires justification"}
	}

	reqHash := requestHash("publish", req.PlanVersionID, req.Actor,
		fmt.Sprintf("%t", req.Override), req.Justification)
	if record, err := s.gate.check(ctx, req.IdempotencyKey, reqHash); err != nil {
		return nil, err
	} else if record != nil {
		return s.replayPublish(ctx, record)
	}

	plan, err := s.planRepo.GetByID(ctx, req.PlanVersionID)
	if err != nil {
		return nil, err
	}
	instances, err := s.forecastRepo.ListInstances(ctx, plan.ForecastVersionID)
	if err != nil {
		return nil, err
	}
	frozen, err := s.checkFreeze(instances, req.Override, req.Justification)
	if err != nil {
		return nil, err
	}
	latest, err := s.auditRepo.LatestRun(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, models.NewConflict(models.ConflictIllegalTransition,
			"plan %s has no audit run", plan.ID)
	}

	blocking := blockingChecks()
	results := make(map[string]string, len(latest))
	var failed []models.CheckFailure
	for _, e := range latest {
		if !blocking[e.CheckName] {
			continue
		}
		results[e.CheckName] = e.Status
		if e.Status == models.AuditStatusFail {
			failed = append(failed, models.CheckFailure{
				Check:          e.CheckName,
				ViolationCount: e.ViolationCount,
				Details:        e.Details,
			})
		}
	}
	if len(failed) > 0 {
		return nil, &models.ComplianceFailure{PlanVersionID: plan.ID, Failed: failed}
	}
	if guard := lifecycle.CanPublish(lifecycle.PublishContext{
		Status:           lifecycle.PlanStatus(plan.Status),
		BlockingResults:  results,
		HasLockAuthority: true,
	}); !guard.Allowed {
		return nil, models.NewConflict(models.ConflictIllegalTransition, "%s", guard.Reason)
	}

	if err := s.planRepo.Lock(ctx, plan.ID, req.Actor); err != nil {
		return nil, err
	}
	if frozen {
		details, _ := json.Marshal(map[string]string{"justification": req.Justification})
		if err := appendEvent(ctx, s.auditRepo, plan.ID, "override.freeze_window",
			models.AuditStatusInfo, req.Actor, string(details), s.now()); err != nil {
			return nil, err
		}
	}
	if err := appendEvent(ctx, s.auditRepo, plan.ID, "lifecycle.locked",
		models.AuditStatusInfo, req.Actor, "", s.now()); err != nil {
		return nil, err
	}

	superseded, err := s.planRepo.SupersedeOthers(ctx, plan.ForecastVersionID, plan.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range superseded {
		if err := appendEvent(ctx, s.auditRepo, id, "lifecycle.superseded",
			models.AuditStatusInfo, req.Actor, "", s.now()); err != nil {
			return nil, err
		}
	}

	if err := s.gate.store(ctx, req.IdempotencyKey, reqHash, publishReceipt{
		PlanVersionID: plan.ID,
		Superseded:    superseded,
	}); err != nil {
		return nil, err
	}

	locked, err := s.planRepo.GetByID(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("plan_id", plan.ID).Str("actor", req.Actor).
		Strs("superseded", superseded).Msg("plan locked")
	return &primary.PublishPlanResponse{Plan: locked, Superseded: superseded}, nil
}

func (s *PlanServiceImpl) replayPublish(ctx context.Context, record *models.IdempotencyRecord) (*primary.PublishPlanResponse, error) {
	var receipt publishReceipt
	if err := json.Unmarshal([]byte(record.Response), &receipt); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	plan, err := s.planRepo.GetByID(ctx, receipt.PlanVersionID)
	if err != nil {
		return nil, err
	}
	return &primary.PublishPlanResponse{Plan: plan, Superseded: receipt.Superseded, Replayed: true}, nil
}

// RequeuePlan starts a fresh attempt for a failed plan's forecast. The
// failed plan itself stays failed; a new attempt is a new PlanVersion.
func (s *PlanServiceImpl) RequeuePlan(ctx context.Context, req primary.RequeuePlanRequest) (*primary.SolvePlanResponse, error) {
	failed, err := s.planRepo.GetByID(ctx, req.PlanVersionID)
	if err != nil {
		return nil, err
	}
	if failed.Status != models.PlanStatusFailed {
		return nil, models.NewConflict(models.ConflictIllegalTransition,
			"plan %s is %s, only failed plans can be requeued", failed.ID, failed.Status)
	}
	seed := req.Seed
	if seed == 0 {
		seed = failed.Seed
	}
	return s.SolvePlan(ctx, primary.SolvePlanRequest{
		TenantID:          failed.TenantID,
		ForecastVersionID: failed.ForecastVersionID,
		Seed:              seed,
		IdempotencyKey:    req.IdempotencyKey,
		Override:          req.Override,
		Justification:     req.Justification,
	})
}

// GetPlan retrieves a plan version by ID.
func (s *PlanServiceImpl) GetPlan(ctx context.Context, planID string) (*models.PlanVersion, error) {
	return s.planRepo.GetByID(ctx, planID)
}

// ListPlans lists plan versions for a forecast.
func (s *PlanServiceImpl) ListPlans(ctx context.Context, forecastID string) ([]*models.PlanVersion, error) {
	return s.planRepo.List(ctx, secondary.PlanFilters{ForecastVersionID: forecastID})
}

// GetAssignments retrieves a plan's assignments.
func (s *PlanServiceImpl) GetAssignments(ctx context.Context, planID string) ([]*models.Assignment, error) {
	return s.planRepo.ListAssignments(ctx, planID)
}

// Ensure PlanServiceImpl implements the interface
var _ primary.PlanService = (*PlanServiceImpl)(nil)
