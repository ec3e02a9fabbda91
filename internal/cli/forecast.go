package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/roster/internal/ports/primary"
	"github.com/example/roster/internal/wire"
)

// ForecastCmd returns the forecast command
func ForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Ingest and inspect forecast versions",
		Long:  `Ingest raw forecast files and inspect the resulting immutable forecast versions.`,
	}

	cmd.AddCommand(forecastIngestCmd())
	cmd.AddCommand(forecastShowCmd())
	cmd.AddCommand(forecastListCmd())
	cmd.AddCommand(forecastInstancesCmd())

	return cmd
}

func forecastIngestCmd() *cobra.Command {
	var tenantID string
	var weekAnchor string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a raw forecast file",
		Long: `Ingest a forecast CSV, validate it, and expand it into tour instances.

Re-ingesting equivalent text returns the existing version instead of a
duplicate.

Examples:
  roster forecast ingest week-10.csv --tenant acme --week 2026-03-02
  roster forecast ingest week-10.csv --tenant acme --week 2026-03-02 --key ingest-w10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read forecast file: %w", err)
			}

			resp, err := wire.ForecastService().IngestForecast(cmd.Context(), primary.IngestForecastRequest{
				TenantID:       tenantID,
				RawText:        string(raw),
				WeekAnchorDate: weekAnchor,
				IdempotencyKey: idempotencyKey,
			})
			if err != nil {
				return err
			}

			if resp.Replayed {
				fmt.Printf("✓ Forecast already ingested: %s\n", resp.Forecast.ID)
			} else {
				fmt.Printf("✓ Ingested forecast %s\n", resp.Forecast.ID)
			}
			fmt.Printf("  Status:    %s\n", forecastStatus(resp.Forecast.Status))
			fmt.Printf("  Instances: %d\n", resp.InstanceCount)
			for _, p := range resp.Problems {
				fmt.Printf("  ⚠️  %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().StringVarP(&weekAnchor, "week", "w", "", "Monday of the planning week, YYYY-MM-DD (required)")
	cmd.Flags().StringVarP(&idempotencyKey, "key", "k", "", "Idempotency key")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("week")

	return cmd
}

func forecastShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [forecast-id]",
		Short: "Show forecast details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forecast, err := wire.ForecastService().GetForecast(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\nForecast: %s\n", forecast.ID)
			fmt.Printf("Tenant:  %s\n", forecast.TenantID)
			fmt.Printf("Week:    %s\n", forecast.WeekAnchorDate)
			fmt.Printf("Status:  %s\n", forecastStatus(forecast.Status))
			fmt.Printf("Input:   %s\n", forecast.InputHash)
			fmt.Printf("Created: %s\n", forecast.CreatedAt)
			fmt.Println()
			return nil
		},
	}
}

func forecastListCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List forecast versions for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			forecasts, err := wire.ForecastService().ListForecasts(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			if len(forecasts) == 0 {
				fmt.Println("No forecasts found.")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "ID\tWEEK\tSTATUS\tCREATED")
			fmt.Fprintln(w, "--\t----\t------\t-------")
			for _, f := range forecasts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.WeekAnchorDate, forecastStatus(f.Status), f.CreatedAt)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID (required)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func forecastInstancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances [forecast-id]",
		Short: "List the expanded tour instances of a forecast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := wire.ForecastService().ListInstances(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				fmt.Println("No instances. The forecast may not be expanded yet.")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "DAY\tSTART\tEND\tDEPOT\tSKILL\tSLOT\tSPLIT\tFINGERPRINT")
			fmt.Fprintln(w, "---\t-----\t---\t-----\t-----\t----\t-----\t-----------")
			for _, inst := range instances {
				fp := inst.Fingerprint
				if len(fp) > 12 {
					fp = fp[:12]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					inst.Day, inst.StartTime, inst.EndTime, inst.Depot, inst.Skill,
					inst.Slot, inst.SplitGroup, fp)
			}
			w.Flush()
			return nil
		},
	}
}
