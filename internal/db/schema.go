package db

import "database/sql"

// SchemaSQL is the complete schema for fresh installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// it via GetSchemaSQL(), so repository code referencing a column that does
// not exist here fails immediately with "no such column".
//
// Immutability is enforced HERE, not in calling code: triggers abort any
// mutation of locked plans and their assignments, any rewrite of a forecast
// version's identity fields, any change to tour instances, and any
// update/delete on the audit log. Trigger messages carry the
// "integrity violation" marker the sqlite adapters translate into a typed
// error.
const SchemaSQL = `
-- Forecast versions (immutable ingested snapshots)
CREATE TABLE IF NOT EXISTS forecast_versions (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	input_hash TEXT NOT NULL,
	raw_text TEXT NOT NULL,
	week_anchor_date TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('ingested', 'validated', 'warn', 'fail', 'expanded')) DEFAULT 'ingested',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tenant_id, input_hash)
);

-- Tour templates (parsed forecast rows, expand 1:N into instances)
CREATE TABLE IF NOT EXISTS tour_templates (
	id TEXT PRIMARY KEY,
	forecast_version_id TEXT NOT NULL,
	weekday INTEGER NOT NULL CHECK(weekday BETWEEN 0 AND 6),
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	headcount INTEGER NOT NULL CHECK(headcount >= 0),
	depot TEXT NOT NULL,
	skill TEXT NOT NULL,
	split_group TEXT,
	cross_midnight INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (forecast_version_id) REFERENCES forecast_versions(id)
);

-- Tour instances (one staffable slot each; immutable)
CREATE TABLE IF NOT EXISTS tour_instances (
	id TEXT PRIMARY KEY,
	forecast_version_id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	day TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	depot TEXT NOT NULL,
	skill TEXT NOT NULL,
	split_group TEXT,
	cross_midnight INTEGER NOT NULL DEFAULT 0,
	slot INTEGER NOT NULL,
	FOREIGN KEY (forecast_version_id) REFERENCES forecast_versions(id),
	FOREIGN KEY (template_id) REFERENCES tour_templates(id)
);

-- Plan versions (one solve attempt each)
CREATE TABLE IF NOT EXISTS plan_versions (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	forecast_version_id TEXT NOT NULL,
	seed INTEGER NOT NULL,
	solver_config_hash TEXT NOT NULL,
	input_hash TEXT NOT NULL,
	output_hash TEXT,
	status TEXT NOT NULL CHECK(status IN ('solving', 'solved', 'audited', 'draft', 'locked', 'failed', 'superseded')) DEFAULT 'solving',
	locked_by TEXT,
	locked_at DATETIME,
	solve_started_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (forecast_version_id) REFERENCES forecast_versions(id)
);

-- Assignments (owned exclusively by their plan version)
CREATE TABLE IF NOT EXISTS assignments (
	id TEXT PRIMARY KEY,
	plan_version_id TEXT NOT NULL,
	driver_id TEXT NOT NULL,
	tour_instance_id TEXT NOT NULL,
	day TEXT NOT NULL,
	block_id TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'driver',
	metadata TEXT,
	FOREIGN KEY (plan_version_id) REFERENCES plan_versions(id),
	FOREIGN KEY (tour_instance_id) REFERENCES tour_instances(id),
	UNIQUE(plan_version_id, tour_instance_id)
);

-- Audit log (append-only forever)
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	plan_version_id TEXT NOT NULL,
	check_name TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('pass', 'fail', 'warn', 'info')),
	violation_count INTEGER NOT NULL DEFAULT 0,
	details TEXT,
	actor TEXT NOT NULL DEFAULT 'system',
	run_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (plan_version_id) REFERENCES plan_versions(id)
);

-- Diff cache
CREATE TABLE IF NOT EXISTS diff_runs (
	old_forecast_id TEXT NOT NULL,
	new_forecast_id TEXT NOT NULL,
	computed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (old_forecast_id, new_forecast_id)
);

CREATE TABLE IF NOT EXISTS diff_entries (
	old_forecast_id TEXT NOT NULL,
	new_forecast_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	diff_type TEXT NOT NULL CHECK(diff_type IN ('added', 'removed', 'changed')),
	count INTEGER NOT NULL DEFAULT 1,
	detail TEXT,
	PRIMARY KEY (old_forecast_id, new_forecast_id, fingerprint, diff_type),
	FOREIGN KEY (old_forecast_id, new_forecast_id) REFERENCES diff_runs(old_forecast_id, new_forecast_id)
);

-- Solve locks (cooperative mutual exclusion, one holder per key)
CREATE TABLE IF NOT EXISTS solve_locks (
	tenant_id TEXT NOT NULL,
	forecast_version_id TEXT NOT NULL,
	holder TEXT NOT NULL,
	plan_version_id TEXT,
	acquired_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (tenant_id, forecast_version_id)
);

-- Idempotency records
CREATE TABLE IF NOT EXISTS idempotency_records (
	key TEXT PRIMARY KEY,
	request_hash TEXT NOT NULL,
	response TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_forecast_versions_tenant ON forecast_versions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_forecast_versions_status ON forecast_versions(status);
CREATE INDEX IF NOT EXISTS idx_tour_templates_forecast ON tour_templates(forecast_version_id);
CREATE INDEX IF NOT EXISTS idx_tour_instances_forecast ON tour_instances(forecast_version_id);
CREATE INDEX IF NOT EXISTS idx_tour_instances_fingerprint ON tour_instances(fingerprint);
CREATE INDEX IF NOT EXISTS idx_plan_versions_forecast ON plan_versions(forecast_version_id);
CREATE INDEX IF NOT EXISTS idx_plan_versions_status ON plan_versions(status);
CREATE INDEX IF NOT EXISTS idx_assignments_plan ON assignments(plan_version_id);
CREATE INDEX IF NOT EXISTS idx_assignments_driver ON assignments(plan_version_id, driver_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_plan ON audit_log(plan_version_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_run ON audit_log(plan_version_id, run_id);
CREATE INDEX IF NOT EXISTS idx_idempotency_expiry ON idempotency_records(expires_at);

-- Forecast versions are immutable apart from their status column.
CREATE TRIGGER IF NOT EXISTS trg_forecast_versions_immutable
BEFORE UPDATE ON forecast_versions
WHEN NEW.tenant_id != OLD.tenant_id
	OR NEW.input_hash != OLD.input_hash
	OR NEW.raw_text != OLD.raw_text
	OR NEW.week_anchor_date != OLD.week_anchor_date
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: forecast versions are immutable');
END;

-- Tour instances are never mutated.
CREATE TRIGGER IF NOT EXISTS trg_tour_instances_immutable
BEFORE UPDATE ON tour_instances
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: tour instances are immutable');
END;

-- Locked plans are write-once; the only permitted change is the
-- locked -> superseded status transition.
CREATE TRIGGER IF NOT EXISTS trg_plan_versions_locked_update
BEFORE UPDATE ON plan_versions
WHEN OLD.status = 'locked'
	AND NOT (NEW.status = 'superseded'
		AND NEW.output_hash IS OLD.output_hash
		AND NEW.seed = OLD.seed
		AND NEW.input_hash = OLD.input_hash
		AND NEW.solver_config_hash = OLD.solver_config_hash
		AND NEW.forecast_version_id = OLD.forecast_version_id)
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: locked plan versions are immutable');
END;

CREATE TRIGGER IF NOT EXISTS trg_plan_versions_locked_delete
BEFORE DELETE ON plan_versions
WHEN OLD.status IN ('locked', 'superseded')
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: locked plan versions cannot be deleted');
END;

-- Assignments of a locked (or superseded, formerly locked) plan are
-- read-only.
CREATE TRIGGER IF NOT EXISTS trg_assignments_locked_update
BEFORE UPDATE ON assignments
WHEN (SELECT status FROM plan_versions WHERE id = OLD.plan_version_id) IN ('locked', 'superseded')
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: assignments of a locked plan are immutable');
END;

CREATE TRIGGER IF NOT EXISTS trg_assignments_locked_delete
BEFORE DELETE ON assignments
WHEN (SELECT status FROM plan_versions WHERE id = OLD.plan_version_id) IN ('locked', 'superseded')
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: assignments of a locked plan are immutable');
END;

CREATE TRIGGER IF NOT EXISTS trg_assignments_locked_insert
BEFORE INSERT ON assignments
WHEN (SELECT status FROM plan_versions WHERE id = NEW.plan_version_id) IN ('locked', 'superseded')
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: assignments of a locked plan are immutable');
END;

-- The audit log is append-only forever.
CREATE TRIGGER IF NOT EXISTS trg_audit_log_no_update
BEFORE UPDATE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: audit log entries are append-only');
END;

CREATE TRIGGER IF NOT EXISTS trg_audit_log_no_delete
BEFORE DELETE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'integrity violation: audit log entries are append-only');
END;
`

// InitSchema creates the database schema on a fresh database and stamps the
// schema version.
func InitSchema(conn *sql.DB) error {
	if _, err := conn.Exec(SchemaSQL); err != nil {
		return err
	}
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = conn.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (1)")
	return err
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent
// drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
