package models

// DiffEntry classifies one fingerprint between two forecast versions.
type DiffEntry struct {
	OldForecastID string
	NewForecastID string
	Fingerprint   string
	Type          string // added, removed, changed
	Count         int    // multiset surplus for this fingerprint
	Detail        string // for changed: fingerprint of the linked peer
}

// Diff type constants
const (
	DiffTypeAdded   = "added"
	DiffTypeRemoved = "removed"
	DiffTypeChanged = "changed"
)
