package models

// ForecastVersion is one immutable ingested snapshot of demand text. Its
// identity is (tenant_id, input_hash); ingesting equivalent text again
// returns the existing version instead of creating a new one. Only the
// status column ever changes after creation.
type ForecastVersion struct {
	ID             string
	TenantID       string
	InputHash      string
	RawText        string
	WeekAnchorDate string // Monday of the planning week, YYYY-MM-DD
	Status         string
	CreatedAt      string
}

// Forecast status constants
const (
	ForecastStatusIngested  = "ingested"
	ForecastStatusValidated = "validated"
	ForecastStatusWarn      = "warn"
	ForecastStatusFail      = "fail"
	ForecastStatusExpanded  = "expanded"
)

// TourTemplate is one parsed forecast row: a demand for Headcount drivers on
// a weekday. Weekday is 0=Monday through 6=Sunday. Templates expand 1:N into
// tour instances.
type TourTemplate struct {
	ID                string
	ForecastVersionID string
	Weekday           int
	StartTime         string // HH:MM
	EndTime           string // HH:MM
	Headcount         int
	Depot             string
	Skill             string
	SplitGroup        string // non-empty links the parts of a split shift
	CrossMidnight     bool
}

// TourInstance is one staffable slot, produced by expanding a template
// against the forecast's week anchor. Instances are immutable; the
// fingerprint identifies the tour's shape independent of the concrete week.
type TourInstance struct {
	ID                string
	ForecastVersionID string
	TemplateID        string
	Fingerprint       string
	Day               string // YYYY-MM-DD
	StartTime         string
	EndTime           string
	Depot             string
	Skill             string
	SplitGroup        string
	CrossMidnight     bool
	Slot              int // 0..Headcount-1 within the template
}
