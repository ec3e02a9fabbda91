package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/roster/internal/core/compliance"
	"github.com/example/roster/internal/core/fingerprint"
	"github.com/example/roster/internal/metrics"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/ports/secondary"
)

// AuditServiceImpl implements the AuditService interface.
type AuditServiceImpl struct {
	auditRepo secondary.AuditLogRepository
}

// NewAuditService creates a new AuditService with injected dependencies.
func NewAuditService(auditRepo secondary.AuditLogRepository) *AuditServiceImpl {
	return &AuditServiceImpl{auditRepo: auditRepo}
}

// GetResults retrieves every audit log entry for a plan, oldest first.
func (s *AuditServiceImpl) GetResults(ctx context.Context, planID string) ([]*models.AuditLogEntry, error) {
	return s.auditRepo.ListByPlan(ctx, planID)
}

// GetLatestRun retrieves the check results of the most recent audit run.
func (s *AuditServiceImpl) GetLatestRun(ctx context.Context, planID string) ([]*models.AuditLogEntry, error) {
	return s.auditRepo.LatestRun(ctx, planID)
}

// Ensure AuditServiceImpl implements the interface
var _ primary.AuditService = (*AuditServiceImpl)(nil)

// auditRunner executes the full check battery against a solved plan and
// commits the results as one append-only batch. The reproducibility check
// sits on top of the pure battery because it needs the solver.
type auditRunner struct {
	auditRepo secondary.AuditLogRepository
	solver    secondary.Solver
	checkCfg  compliance.Config
	now       func() time.Time
}

func newAuditRunner(auditRepo secondary.AuditLogRepository, solver secondary.Solver, checkCfg compliance.Config) *auditRunner {
	return &auditRunner{
		auditRepo: auditRepo,
		solver:    solver,
		checkCfg:  checkCfg,
		now:       time.Now,
	}
}

// batteryOutcome is one committed audit run.
type batteryOutcome struct {
	entries          []*models.AuditLogEntry
	blockingFailed   []models.CheckFailure
	checksRecorded   int
	checksRegistered int
}

// blockingChecks names every check whose failure blocks publication. The
// whole battery is blocking; advisory checks would be listed here as false.
func blockingChecks() map[string]bool {
	blocking := map[string]bool{"reproducibility": true}
	for _, c := range compliance.Battery() {
		blocking[c.Name()] = c.Blocking()
	}
	return blocking
}

// run executes every check concurrently and appends one batch sharing a run
// id and timestamp. Checks are pure, so order does not matter; results are
// committed in deterministic check-name order regardless of finish order.
func (r *auditRunner) run(ctx context.Context, plan *models.PlanVersion, assignments []*models.Assignment, instances []*models.TourInstance, solverConfig map[string]any) (*batteryOutcome, error) {
	checks := compliance.Battery()
	in := compliance.Input{
		Plan:        plan,
		Assignments: assignments,
		Instances:   instances,
		Config:      r.checkCfg,
	}

	results := make([]compliance.Result, len(checks)+1)
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c compliance.Check) {
			defer wg.Done()
			results[i] = c.Run(in)
		}(i, c)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[len(checks)] = r.reproducibility(ctx, plan, instances, solverConfig)
	}()
	wg.Wait()

	runID := uuid.NewString()
	createdAt := r.now().UTC().Format(time.RFC3339)
	outcome := &batteryOutcome{checksRegistered: len(checks) + 1}
	for _, res := range results {
		details := ""
		if len(res.Details) > 0 {
			data, err := json.Marshal(res.Details)
			if err != nil {
				return nil, fmt.Errorf("failed to encode check details: %w", err)
			}
			details = string(data)
		}
		outcome.entries = append(outcome.entries, &models.AuditLogEntry{
			ID:             uuid.NewString(),
			PlanVersionID:  plan.ID,
			CheckName:      res.Check,
			Status:         res.Status,
			ViolationCount: res.ViolationCount,
			Details:        details,
			Actor:          "system",
			RunID:          runID,
			CreatedAt:      createdAt,
		})
		outcome.checksRecorded++
		if res.Status == compliance.StatusFail {
			metrics.AuditCheckFailuresTotal.WithLabelValues(res.Check).Inc()
			if blockingChecks()[res.Check] {
				outcome.blockingFailed = append(outcome.blockingFailed, models.CheckFailure{
					Check:          res.Check,
					ViolationCount: res.ViolationCount,
					Details:        details,
				})
			}
		}
	}

	if err := r.auditRepo.AppendBatch(ctx, outcome.entries); err != nil {
		return nil, fmt.Errorf("failed to append audit run: %w", err)
	}
	return outcome, nil
}

// reproducibility re-runs the solver with the plan's own seed and config and
// compares output hashes. A divergent second run means the solver is not
// deterministic and the plan cannot be trusted for publication.
func (r *auditRunner) reproducibility(ctx context.Context, plan *models.PlanVersion, instances []*models.TourInstance, solverConfig map[string]any) compliance.Result {
	const name = "reproducibility"

	rerun, err := r.solver.Solve(ctx, secondary.SolveRequest{
		Instances: instances,
		Seed:      plan.Seed,
		Config:    solverConfig,
	})
	if err != nil {
		return compliance.Result{
			Check:          name,
			Status:         compliance.StatusFail,
			ViolationCount: 1,
			Details:        map[string]any{"error": err.Error()},
		}
	}

	keys := make([]fingerprint.AssignmentKey, len(rerun.Assignments))
	for i, a := range rerun.Assignments {
		keys[i] = fingerprint.AssignmentKey{
			DriverID:       a.DriverID,
			TourInstanceID: a.TourInstanceID,
			Day:            a.Day,
			BlockID:        a.BlockID,
			Role:           a.Role,
		}
	}
	rerunHash := fingerprint.Output(keys)
	if rerunHash != plan.OutputHash {
		return compliance.Result{
			Check:          name,
			Status:         compliance.StatusFail,
			ViolationCount: 1,
			Details: map[string]any{
				"expected_output_hash": plan.OutputHash,
				"rerun_output_hash":    rerunHash,
			},
		}
	}
	return compliance.Result{Check: name, Status: compliance.StatusPass, Details: map[string]any{}}
}

// appendEvent records a single lifecycle or override entry outside any check
// run.
func appendEvent(ctx context.Context, repo secondary.AuditLogRepository, planID, name, status, actor, details string, at time.Time) error {
	return repo.AppendBatch(ctx, []*models.AuditLogEntry{{
		ID:            uuid.NewString(),
		PlanVersionID: planID,
		CheckName:     name,
		Status:        status,
		Details:       details,
		Actor:         actor,
		RunID:         uuid.NewString(),
		CreatedAt:     at.UTC().Format(time.RFC3339),
	}})
}
