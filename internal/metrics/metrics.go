// Package metrics defines the Prometheus instrumentation for the roster
// core. Collectors register on the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SolvesTotal counts solve attempts by terminal outcome (draft, failed,
	// busy).
	SolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "solves_total",
		Help:      "Solve attempts by outcome.",
	}, []string{"outcome"})

	// AuditCheckFailuresTotal counts failing audit checks by check name.
	AuditCheckFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "audit_check_failures_total",
		Help:      "Blocking and non-blocking audit check failures by check.",
	}, []string{"check"})

	// RecoverySweepsTotal counts crash-recovery sweeps.
	RecoverySweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "recovery_sweeps_total",
		Help:      "Crash-recovery sweeps executed.",
	})

	// RecoveredPlansTotal counts plans moved solving -> failed by recovery.
	RecoveredPlansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "recovered_plans_total",
		Help:      "Stuck plans failed by crash recovery.",
	})

	// IdempotentReplaysTotal counts requests answered from the idempotency
	// store without re-execution.
	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "idempotent_replays_total",
		Help:      "Requests replayed from stored idempotency records.",
	})

	// DiffCacheHitsTotal counts forecast diffs served from the cache.
	DiffCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "diff_cache_hits_total",
		Help:      "Forecast diff requests served from the cache.",
	})

	// IntegrityViolationsTotal counts blocked mutations of immutable data.
	IntegrityViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Name:      "integrity_violations_total",
		Help:      "Mutations of locked or append-only data blocked by the storage layer.",
	})
)
