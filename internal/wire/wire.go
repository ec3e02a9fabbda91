// Package wire provides dependency injection for the roster application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/roster/internal/adapters/forecastfile"
	"github.com/example/roster/internal/adapters/solver"
	"github.com/example/roster/internal/adapters/sqlite"
	"github.com/example/roster/internal/app"
	"github.com/example/roster/internal/config"
	"github.com/example/roster/internal/db"
	"github.com/example/roster/internal/logging"
	"github.com/example/roster/internal/ports/primary"
)

var (
	cfg             *config.Config
	logger          zerolog.Logger
	forecastService primary.ForecastService
	planService     primary.PlanService
	auditService    primary.AuditService
	diffService     primary.DiffService
	recoveryService primary.RecoveryService
	once            sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// ForecastService returns the singleton ForecastService instance.
func ForecastService() primary.ForecastService {
	once.Do(initServices)
	return forecastService
}

// PlanService returns the singleton PlanService instance.
func PlanService() primary.PlanService {
	once.Do(initServices)
	return planService
}

// AuditService returns the singleton AuditService instance.
func AuditService() primary.AuditService {
	once.Do(initServices)
	return auditService
}

// DiffService returns the singleton DiffService instance.
func DiffService() primary.DiffService {
	once.Do(initServices)
	return diffService
}

// RecoveryService returns the singleton RecoveryService instance.
func RecoveryService() primary.RecoveryService {
	once.Do(initServices)
	return recoveryService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load(os.Getenv("ROSTER_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger = logging.New(cfg.Logging)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports) with the injected DB.
	forecastRepo := sqlite.NewForecastRepository(database)
	planRepo := sqlite.NewPlanRepository(database)
	auditRepo := sqlite.NewAuditLogRepository(database)
	lockRepo := sqlite.NewSolveLockRepository(database)
	diffRepo := sqlite.NewDiffRepository(database)
	idempotencyRepo := sqlite.NewIdempotencyRepository(database)

	parser := forecastfile.NewParser()
	greedy := solver.NewGreedy()

	// Services (primary port implementations).
	forecastService = app.NewForecastService(forecastRepo, parser, idempotencyRepo,
		time.Duration(cfg.Idempotency.TTLHours)*time.Hour, logger)
	planService = app.NewPlanService(planRepo, forecastRepo, auditRepo, lockRepo,
		idempotencyRepo, greedy, cfg, logger)
	auditService = app.NewAuditService(auditRepo)
	diffService = app.NewDiffService(forecastRepo, diffRepo, logger)
	recoveryService = app.NewRecoveryService(planRepo, lockRepo, auditRepo, cfg, logger)
}
