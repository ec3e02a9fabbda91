package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/roster/internal/wire"
)

// DiffCmd returns the diff command
func DiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [old-forecast-id] [new-forecast-id]",
		Short: "Compare two forecast versions",
		Long: `Classify each tour fingerprint as added, removed or changed between two
expanded forecast versions of the same tenant. Results are cached; repeating
a comparison is free.

Examples:
  roster diff fv-week09 fv-week10`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := wire.DiffService().DiffForecasts(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No differences.")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "TYPE\tFINGERPRINT\tCOUNT\tLINKED TO")
			fmt.Fprintln(w, "----\t-----------\t-----\t---------")
			for _, e := range entries {
				fp, peer := e.Fingerprint, e.Detail
				if len(fp) > 12 {
					fp = fp[:12]
				}
				if len(peer) > 12 {
					peer = peer[:12]
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Type, fp, e.Count, peer)
			}
			w.Flush()
			return nil
		},
	}
}
