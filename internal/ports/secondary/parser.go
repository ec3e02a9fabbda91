package secondary

import "github.com/example/roster/internal/models"

// Parser verdicts.
const (
	VerdictPass = "pass"
	VerdictWarn = "warn"
	VerdictFail = "fail"
)

// ParseResult is the outcome of parsing raw forecast text. A fail verdict
// blocks ingestion beyond the ingested status.
type ParseResult struct {
	Templates []*models.TourTemplate
	Verdict   string
	Problems  []string
}

// ForecastParser defines the secondary port for the external forecast
// parser that turns raw text into tour templates.
type ForecastParser interface {
	Parse(raw string) (*ParseResult, error)
}
