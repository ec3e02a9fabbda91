package cli

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// MetricsCmd returns the metrics command
func MetricsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics over HTTP",
		Long: `Expose the process metrics (solve outcomes, audit failures, recovery
sweeps) on /metrics. Blocks until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			fmt.Printf("Serving metrics on http://%s/metrics\n", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "Listen address")

	return cmd
}
