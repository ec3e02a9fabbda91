package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/roster/internal/wire"
)

// RecoverCmd returns the recover command
func RecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Resolve plans stuck mid-solve",
		Long:  `Fail plans left in solving by a crashed process and release their locks.`,
	}

	cmd.AddCommand(recoverSweepCmd())
	cmd.AddCommand(recoverReleaseCmd())

	return cmd
}

func recoverSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Fail every plan stuck in solving past the stale age",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := wire.RecoveryService().Sweep(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("✓ Sweep checked %d stale plan(s)\n", report.Checked)
			if len(report.Recovered) == 0 {
				fmt.Println("  Nothing to recover.")
				return nil
			}
			for _, id := range report.Recovered {
				fmt.Printf("  Recovered: %s\n", id)
			}
			return nil
		},
	}
}

func recoverReleaseCmd() *cobra.Command {
	var actor string
	var reason string

	cmd := &cobra.Command{
		Use:   "release [plan-id]",
		Short: "Fail one stuck plan regardless of age",
		Long: `Force one solving plan to failed and release its lock. The reason is
mandatory and lands in the audit log.

Examples:
  roster recover release pv-123 --actor ops@example.com --reason "solver host died"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.RecoveryService().ForceRelease(cmd.Context(), args[0], actor, reason); err != nil {
				return err
			}
			fmt.Printf("✓ Released plan %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&actor, "actor", "a", "", "Who is forcing the release (required)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the plan is being released (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("reason")

	return cmd
}
