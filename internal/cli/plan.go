package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/wire"
)

// PlanCmd returns the plan command
func PlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Solve, publish and inspect plan versions",
		Long:  `Drive the plan lifecycle: solve a forecast into a draft, publish a draft, requeue a failed attempt.`,
	}

	cmd.AddCommand(planSolveCmd())
	cmd.AddCommand(planPublishCmd())
	cmd.AddCommand(planRequeueCmd())
	cmd.AddCommand(planShowCmd())
	cmd.AddCommand(planListCmd())
	cmd.AddCommand(planAssignmentsCmd())
	cmd.AddCommand(planAuditCmd())

	return cmd
}

func planSolveCmd() *cobra.Command {
	var tenantID string
	var forecastID string
	var seed int64
	var poolSize int
	var idempotencyKey string
	var override bool
	var justification string

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run one solve attempt over an expanded forecast",
		Long: `Acquire the solve lock, run the solver, audit the result and leave the
plan in draft (all blocking checks passed) or failed.

Examples:
  roster plan solve --tenant acme --forecast fv-123 --seed 42
  roster plan solve --tenant acme --forecast fv-123 --seed 42 --override --justification "sickness cover"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			solverConfig := map[string]any{}
			if poolSize > 0 {
				solverConfig["driver_pool_size"] = poolSize
			}

			resp, err := wire.PlanService().SolvePlan(cmd.Context(), primary.SolvePlanRequest{
				TenantID:          tenantID,
				ForecastVersionID: forecastID,
				Seed:              seed,
				SolverConfig:      solverConfig,
				IdempotencyKey:    idempotencyKey,
				Override:          override,
				Justification:     justification,
			})
			if err != nil {
				return err
			}

			if resp.Replayed {
				fmt.Printf("✓ Replayed solve: plan %s\n", resp.Plan.ID)
			} else {
				fmt.Printf("✓ Solve finished: plan %s is %s\n", resp.Plan.ID, planStatus(resp.Plan.Status))
			}
			fmt.Println()
			printCheckResults(resp.CheckResults)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().StringVarP(&forecastID, "forecast", "f", "", "Forecast version ID (required)")
	cmd.Flags().Int64VarP(&seed, "seed", "s", 1, "Solver seed")
	cmd.Flags().IntVar(&poolSize, "pool-size", 0, "Driver pool size (0 uses the solver default)")
	cmd.Flags().StringVarP(&idempotencyKey, "key", "k", "", "Idempotency key")
	cmd.Flags().BoolVar(&override, "override", false, "Override the freeze window")
	cmd.Flags().StringVar(&justification, "justification", "", "Justification for the override (required with --override)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("forecast")

	return cmd
}

func planPublishCmd() *cobra.Command {
	var actor string
	var idempotencyKey string
	var override bool
	var justification string

	cmd := &cobra.Command{
		Use:   "publish [plan-id]",
		Short: "Lock a draft plan for publication",
		Long: `Lock a draft plan. Every blocking check of the latest audit run must
pass and the freeze window must not apply; a previously locked plan of the
same forecast is superseded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := wire.PlanService().PublishPlan(cmd.Context(), primary.PublishPlanRequest{
				PlanVersionID:  args[0],
				Actor:          actor,
				IdempotencyKey: idempotencyKey,
				Override:       override,
				Justification:  justification,
			})
			if err != nil {
				return err
			}

			if resp.Replayed {
				fmt.Printf("✓ Replayed publish: plan %s\n", resp.Plan.ID)
			} else {
				fmt.Printf("✓ Locked plan %s\n", resp.Plan.ID)
			}
			for _, id := range resp.Superseded {
				fmt.Printf("  Superseded: %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&actor, "actor", "a", "", "Who is locking the plan (required)")
	cmd.Flags().StringVarP(&idempotencyKey, "key", "k", "", "Idempotency key")
	cmd.Flags().BoolVar(&override, "override", false, "Override the freeze window")
	cmd.Flags().StringVar(&justification, "justification", "", "Justification for the override (required with --override)")
	cmd.MarkFlagRequired("actor")

	return cmd
}

func planRequeueCmd() *cobra.Command {
	var seed int64
	var idempotencyKey string
	var override bool
	var justification string

	cmd := &cobra.Command{
		Use:   "requeue [plan-id]",
		Short: "Start a fresh solve attempt for a failed plan's forecast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := wire.PlanService().RequeuePlan(cmd.Context(), primary.RequeuePlanRequest{
				PlanVersionID:  args[0],
				Seed:           seed,
				IdempotencyKey: idempotencyKey,
				Override:       override,
				Justification:  justification,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Requeued as plan %s (%s)\n", resp.Plan.ID, planStatus(resp.Plan.Status))
			fmt.Println()
			printCheckResults(resp.CheckResults)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Solver seed (0 keeps the failed plan's seed)")
	cmd.Flags().StringVarP(&idempotencyKey, "key", "k", "", "Idempotency key")
	cmd.Flags().BoolVar(&override, "override", false, "Override the freeze window")
	cmd.Flags().StringVar(&justification, "justification", "", "Justification for the override")

	return cmd
}

func planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [plan-id]",
		Short: "Show plan details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := wire.PlanService().GetPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printPlan(plan)
			return nil
		},
	}
}

func planListCmd() *cobra.Command {
	var forecastID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plan versions for a forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := wire.PlanService().ListPlans(cmd.Context(), forecastID)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Println("No plans found.")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "ID\tSTATUS\tSEED\tLOCKED BY\tCREATED")
			fmt.Fprintln(w, "--\t------\t----\t---------\t-------")
			for _, p := range plans {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", p.ID, planStatus(p.Status), p.Seed, p.LockedBy, p.CreatedAt)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&forecastID, "forecast", "f", "", "Forecast version ID (required)")
	cmd.MarkFlagRequired("forecast")

	return cmd
}

func planAssignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assignments [plan-id]",
		Short: "List a plan's driver assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := wire.PlanService().GetAssignments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(assignments) == 0 {
				fmt.Println("No assignments. The plan may not be solved yet.")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "DAY\tDRIVER\tTOUR\tBLOCK\tROLE")
			fmt.Fprintln(w, "---\t------\t----\t-----\t----")
			for _, a := range assignments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Day, a.DriverID, a.TourInstanceID, a.BlockID, a.Role)
			}
			w.Flush()
			return nil
		},
	}
}

func planAuditCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "audit [plan-id]",
		Short: "Show a plan's audit results",
		Long: `Show the latest audit run of a plan, or with --full the complete
append-only log including lifecycle events.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := wire.AuditService()
			var entries []*models.AuditLogEntry
			var err error
			if full {
				entries, err = svc.GetResults(cmd.Context(), args[0])
			} else {
				entries, err = svc.GetLatestRun(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			printCheckResults(entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Show the complete audit log, not just the latest run")

	return cmd
}
