package store

// Schema bootstrap is idempotent re-creation, not versioned migration. Key
// columns are VARCHAR because MySQL cannot uniquely index unbounded TEXT,
// and key parts are sized so every composite primary key stays under the
// InnoDB 3072-byte index limit at 4 bytes per utf8mb4 character.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS orgs (
		alias VARCHAR(128) NOT NULL,
		org_id VARCHAR(64) NOT NULL,
		instance_url TEXT NOT NULL,
		username TEXT,
		active BOOLEAN NOT NULL,
		connected_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (alias)
	)`,
	`CREATE TABLE IF NOT EXISTS sobjects (
		org_id VARCHAR(64) NOT NULL,
		durable_id VARCHAR(255) NOT NULL,
		api_name VARCHAR(255) NOT NULL,
		label TEXT,
		label_plural TEXT,
		custom BOOLEAN NOT NULL,
		key_prefix VARCHAR(8),
		queryable BOOLEAN NOT NULL,
		createable BOOLEAN NOT NULL,
		updateable BOOLEAN NOT NULL,
		deletable BOOLEAN NOT NULL,
		raw TEXT,
		synced_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (org_id, durable_id)
	)`,
	`CREATE TABLE IF NOT EXISTS fields (
		org_id VARCHAR(64) NOT NULL,
		durable_id VARCHAR(255) NOT NULL,
		object_durable_id VARCHAR(255) NOT NULL,
		object_api_name VARCHAR(255) NOT NULL,
		api_name VARCHAR(255) NOT NULL,
		label TEXT,
		field_type VARCHAR(64),
		field_length INTEGER,
		custom BOOLEAN NOT NULL,
		required BOOLEAN NOT NULL,
		unique_field BOOLEAN NOT NULL,
		external_id BOOLEAN NOT NULL,
		reference_to TEXT,
		relationship_name TEXT,
		formula TEXT,
		default_value TEXT,
		help_text TEXT,
		raw TEXT,
		synced_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (org_id, durable_id)
	)`,
	`CREATE TABLE IF NOT EXISTS flows (
		org_id VARCHAR(64) NOT NULL,
		flow_id VARCHAR(64) NOT NULL,
		api_name VARCHAR(255) NOT NULL,
		version INTEGER NOT NULL,
		label TEXT,
		process_type VARCHAR(64),
		trigger_type VARCHAR(64),
		trigger_object VARCHAR(255),
		active BOOLEAN NOT NULL,
		status VARCHAR(32),
		description TEXT,
		element_counts TEXT,
		has_record_lookups BOOLEAN NOT NULL,
		has_record_creates BOOLEAN NOT NULL,
		has_record_updates BOOLEAN NOT NULL,
		has_record_deletes BOOLEAN NOT NULL,
		content_hash VARCHAR(32),
		synced_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (org_id, api_name, version)
	)`,
	`CREATE TABLE IF NOT EXISTS flow_field_references (
		org_id VARCHAR(64) NOT NULL,
		flow_id VARCHAR(64) NOT NULL,
		flow_api_name VARCHAR(255) NOT NULL,
		version INTEGER NOT NULL,
		object_name VARCHAR(160) NOT NULL,
		field_name VARCHAR(160) NOT NULL,
		element_name VARCHAR(160) NOT NULL,
		element_type VARCHAR(16) NOT NULL,
		is_input BOOLEAN NOT NULL,
		is_output BOOLEAN NOT NULL,
		variable_name TEXT,
		PRIMARY KEY (org_id, flow_id, version, object_name, field_name, element_name, element_type)
	)`,
	`CREATE TABLE IF NOT EXISTS field_dependencies (
		alias VARCHAR(128) NOT NULL,
		object_name VARCHAR(160) NOT NULL,
		field_name VARCHAR(160) NOT NULL,
		dependent_type VARCHAR(16) NOT NULL,
		dependent_name VARCHAR(160) NOT NULL,
		reference_type VARCHAR(16) NOT NULL,
		PRIMARY KEY (alias, object_name, field_name, dependent_type, dependent_name, reference_type)
	)`,
	`CREATE TABLE IF NOT EXISTS triggers (
		org_id VARCHAR(64) NOT NULL,
		trigger_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		object_name VARCHAR(255),
		active BOOLEAN NOT NULL,
		before_insert BOOLEAN NOT NULL,
		before_update BOOLEAN NOT NULL,
		before_delete BOOLEAN NOT NULL,
		after_insert BOOLEAN NOT NULL,
		after_update BOOLEAN NOT NULL,
		after_delete BOOLEAN NOT NULL,
		after_undelete BOOLEAN NOT NULL,
		api_version VARCHAR(16),
		body_length INTEGER,
		synced_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (org_id, trigger_id)
	)`,
	`CREATE TABLE IF NOT EXISTS field_relationships (
		alias VARCHAR(128) NOT NULL,
		source_object VARCHAR(160) NOT NULL,
		source_field VARCHAR(160) NOT NULL,
		target_object VARCHAR(160) NOT NULL,
		relationship_type VARCHAR(32) NOT NULL,
		relationship_name TEXT,
		cascade_delete BOOLEAN NOT NULL,
		reparentable BOOLEAN NOT NULL,
		PRIMARY KEY (alias, source_object, source_field, target_object)
	)`,
	`CREATE TABLE IF NOT EXISTS object_relationships (
		alias VARCHAR(128) NOT NULL,
		parent_object VARCHAR(160) NOT NULL,
		child_object VARCHAR(160) NOT NULL,
		field_name VARCHAR(160) NOT NULL,
		relationship_type VARCHAR(32) NOT NULL,
		PRIMARY KEY (alias, parent_object, child_object, field_name)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id VARCHAR(36) NOT NULL,
		alias VARCHAR(128) NOT NULL,
		org_id VARCHAR(64) NOT NULL,
		objects INTEGER NOT NULL,
		fields INTEGER NOT NULL,
		flows INTEGER NOT NULL,
		triggers INTEGER NOT NULL,
		relationships INTEGER NOT NULL,
		started_at VARCHAR(40) NOT NULL,
		completed_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (run_id)
	)`,
}
