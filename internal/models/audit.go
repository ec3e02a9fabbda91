package models

// AuditLogEntry is one append-only row in the compliance audit log.
// Rows are never updated or deleted, even after the plan locks; the
// storage layer enforces this with triggers.
//
// Check results and lifecycle events share the table: check rows carry the
// check name (coverage, overlap, ...), lifecycle rows use the
// "lifecycle.<status>" and "override.<rule>" naming.
type AuditLogEntry struct {
	ID             string
	PlanVersionID  string
	CheckName      string
	Status         string // pass, fail, warn, info
	ViolationCount int
	Details        string // JSON blob
	Actor          string
	RunID          string // shared by all entries of one audit run
	CreatedAt      string // shared by all entries of one audit run
}

// Audit entry status constants
const (
	AuditStatusPass = "pass"
	AuditStatusFail = "fail"
	AuditStatusWarn = "warn"
	AuditStatusInfo = "info"
)
