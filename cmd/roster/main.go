package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/roster/internal/cli"
	"github.com/example/roster/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "roster",
		Short:   "Roster - versioned duty rosters with compliance auditing",
		Version: version.String(),
		Long: `Roster turns weekly demand forecasts into driver duty rosters.
Forecasts and plans are immutable versions: every solve attempt is audited
against the compliance battery before it can be locked for publication.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.ForecastCmd())
	rootCmd.AddCommand(cli.PlanCmd())
	rootCmd.AddCommand(cli.DiffCmd())
	rootCmd.AddCommand(cli.RecoverCmd())
	rootCmd.AddCommand(cli.MetricsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
