// Package cli contains the cobra commands of the roster binary. Commands are
// thin translators: they parse flags, call a primary port and render the
// response.
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/roster/internal/models"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
}

// planStatus renders a plan status with the color ops people read at a
// glance: green is publishable, red needs attention.
func planStatus(status string) string {
	switch status {
	case models.PlanStatusDraft:
		return color.New(color.FgHiGreen).Sprint(status)
	case models.PlanStatusLocked:
		return color.New(color.FgHiBlue).Sprint(status)
	case models.PlanStatusFailed:
		return color.New(color.FgRed).Sprint(status)
	case models.PlanStatusSuperseded:
		return color.New(color.FgHiBlack).Sprint(status)
	case models.PlanStatusSolving:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return status
	}
}

func forecastStatus(status string) string {
	switch status {
	case models.ForecastStatusExpanded:
		return color.New(color.FgHiGreen).Sprint(status)
	case models.ForecastStatusFail:
		return color.New(color.FgRed).Sprint(status)
	case models.ForecastStatusWarn:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return status
	}
}

func checkStatus(status string) string {
	switch status {
	case models.AuditStatusPass:
		return color.New(color.FgHiGreen).Sprint(status)
	case models.AuditStatusFail:
		return color.New(color.FgRed).Sprint(status)
	case models.AuditStatusWarn:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return status
	}
}

func printCheckResults(entries []*models.AuditLogEntry) {
	if len(entries) == 0 {
		fmt.Println("No audit entries.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "CHECK\tSTATUS\tVIOLATIONS\tACTOR\tAT")
	fmt.Fprintln(w, "-----\t------\t----------\t-----\t--")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.CheckName, checkStatus(e.Status), e.ViolationCount, e.Actor, e.CreatedAt)
	}
	w.Flush()
}

func printPlan(plan *models.PlanVersion) {
	fmt.Printf("\nPlan: %s\n", plan.ID)
	fmt.Printf("Tenant:   %s\n", plan.TenantID)
	fmt.Printf("Forecast: %s\n", plan.ForecastVersionID)
	fmt.Printf("Status:   %s\n", planStatus(plan.Status))
	fmt.Printf("Seed:     %d\n", plan.Seed)
	if plan.OutputHash != "" {
		fmt.Printf("Output:   %s\n", plan.OutputHash)
	}
	if plan.LockedBy != "" {
		fmt.Printf("Locked:   by %s at %s\n", plan.LockedBy, plan.LockedAt)
	}
	fmt.Printf("Created:  %s\n", plan.CreatedAt)
	fmt.Println()
}
