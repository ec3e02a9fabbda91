// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"strings"

	"github.com/example/roster/internal/metrics"
	"github.com/example/roster/internal/models"
)

// translateIntegrity maps trigger aborts to the typed IntegrityViolation.
// The schema's triggers all RAISE(ABORT) with an "integrity violation"
// marker, so attempted mutation of locked or append-only data surfaces as a
// distinct error instead of a generic sqlite failure.
func translateIntegrity(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "integrity violation") {
		metrics.IntegrityViolationsTotal.Inc()
		return &models.IntegrityViolation{Entity: entity, ID: id, Msg: err.Error()}
	}
	return err
}
