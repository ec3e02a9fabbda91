package app

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/example/roster/internal/adapters/solver"
	"github.com/example/roster/internal/adapters/sqlite"
	"github.com/example/roster/internal/config"
	"github.com/example/roster/internal/db"
	"github.com/example/roster/internal/models"
)

// testEnv wires the services against real in-memory SQLite repositories so
// the tests exercise the same guarded updates and triggers production sees.
type testEnv struct {
	db        *sql.DB
	cfg       *config.Config
	forecasts *sqlite.ForecastRepository
	plans     *sqlite.PlanRepository
	audits    *sqlite.AuditLogRepository
	locks     *sqlite.SolveLockRepository
	diffs     *sqlite.DiffRepository
	idem      *sqlite.IdempotencyRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// An in-memory database exists per connection; keep the pool at one so
	// every statement sees the same schema.
	testDB.SetMaxOpenConns(1)
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })

	return &testEnv{
		db:        testDB,
		cfg:       config.Default(),
		forecasts: sqlite.NewForecastRepository(testDB),
		plans:     sqlite.NewPlanRepository(testDB),
		audits:    sqlite.NewAuditLogRepository(testDB),
		locks:     sqlite.NewSolveLockRepository(testDB),
		diffs:     sqlite.NewDiffRepository(testDB),
		idem:      sqlite.NewIdempotencyRepository(testDB),
	}
}

// fixedNow is well before every test instance's day so the freeze window
// never interferes unless a test moves the clock on purpose.
var fixedNow = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func (e *testEnv) planService() *PlanServiceImpl {
	s := NewPlanService(e.plans, e.forecasts, e.audits, e.locks, e.idem,
		solver.NewGreedy(), e.cfg, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

// seedExpandedForecast stores an expanded forecast with n plain one-slot
// tours on 2026-03-02, one per hour starting at 08:00.
func seedExpandedForecast(t *testing.T, e *testEnv, id, tenant string, n int) {
	t.Helper()

	forecast := &models.ForecastVersion{
		ID:             id,
		TenantID:       tenant,
		InputHash:      "hash-" + id,
		RawText:        "raw-" + id,
		WeekAnchorDate: "2026-03-02",
		Status:         models.ForecastStatusExpanded,
	}
	if err := e.forecasts.Create(context.Background(), forecast); err != nil {
		t.Fatalf("failed to seed forecast: %v", err)
	}

	var instances []*models.TourInstance
	for i := 0; i < n; i++ {
		instances = append(instances, &models.TourInstance{
			ID:                fmt.Sprintf("%s-ti-%03d", id, i),
			ForecastVersionID: id,
			Fingerprint:       fmt.Sprintf("%s-fp-%03d", id, i),
			Day:               "2026-03-02",
			StartTime:         fmt.Sprintf("%02d:00", 8+i),
			EndTime:           fmt.Sprintf("%02d:00", 9+i),
			Depot:             "north",
			Skill:             "standard",
			Slot:              0,
		})
	}
	if err := e.forecasts.CreateInstances(context.Background(), instances); err != nil {
		t.Fatalf("failed to seed instances: %v", err)
	}
}
