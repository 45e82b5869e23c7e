package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Org is one connected org alias. Active marks the alias commands default to.
type Org struct {
	Alias       string
	OrgID       string
	InstanceURL string
	Username    string
	Active      bool
	ConnectedAt time.Time
}

var orgColumns = []string{"alias", "org_id", "instance_url", "username", "active", "connected_at"}

// SaveOrg inserts or updates an org row keyed by alias.
func (s *Store) SaveOrg(ctx context.Context, org Org) error {
	query := s.dialect.rebind(s.dialect.upsert("orgs", orgColumns, []string{"alias"}))
	_, err := s.db.ExecContext(ctx, query, org.Alias, org.OrgID, org.InstanceURL, org.Username, org.Active, formatTime(org.ConnectedAt))
	return err
}

// ListOrgs returns every connected org ordered by alias.
func (s *Store) ListOrgs(ctx context.Context) ([]Org, error) {
	query := s.dialect.rebind("SELECT alias, org_id, instance_url, username, active, connected_at FROM orgs ORDER BY alias")
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orgs []Org
	for rows.Next() {
		var org Org
		var connectedAt string
		if err := rows.Scan(&org.Alias, &org.OrgID, &org.InstanceURL, &org.Username, &org.Active, &connectedAt); err != nil {
			return nil, err
		}
		org.ConnectedAt = parseTime(connectedAt)
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// ActiveOrg returns the org marked active or nil when none is.
func (s *Store) ActiveOrg(ctx context.Context) (*Org, error) {
	orgs, err := s.ListOrgs(ctx)
	if err != nil {
		return nil, err
	}
	for _, org := range orgs {
		if org.Active {
			return &org, nil
		}
	}
	return nil, nil
}

// SetActiveOrg marks one alias active and clears the flag everywhere else.
func (s *Store) SetActiveOrg(ctx context.Context, alias string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind("UPDATE orgs SET active = ?"), false); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.dialect.rebind("UPDATE orgs SET active = ? WHERE alias = ?"), true, alias)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("no org with alias: %s", alias)
		}
		return nil
	})
}

// Object is one remote catalog entry keyed by (org_id, durable_id).
type Object struct {
	OrgID       string
	DurableID   string
	APIName     string
	Label       string
	LabelPlural string
	Custom      bool
	KeyPrefix   string
	Queryable   bool
	Createable  bool
	Updateable  bool
	Deletable   bool
	Raw         string
	SyncedAt    time.Time
}

var objectColumns = []string{"org_id", "durable_id", "api_name", "label", "label_plural", "custom", "key_prefix", "queryable", "createable", "updateable", "deletable", "raw", "synced_at"}

// SaveObject upserts an object row. An API name or label change on an
// unchanged durable id updates the existing row in place.
func (s *Store) SaveObject(ctx context.Context, tx Execer, o Object) error {
	query := s.dialect.rebind(s.dialect.upsert("sobjects", objectColumns, []string{"org_id", "durable_id"}))
	_, err := tx.ExecContext(ctx, query, o.OrgID, o.DurableID, o.APIName, o.Label, o.LabelPlural, o.Custom, o.KeyPrefix, o.Queryable, o.Createable, o.Updateable, o.Deletable, o.Raw, formatTime(o.SyncedAt))
	return err
}

// ObjectRef is the subset of an object row the field sync iterates.
type ObjectRef struct {
	DurableID string
	APIName   string
	Custom    bool
}

// ListObjects returns every synced object for the org ordered by API name.
func (s *Store) ListObjects(ctx context.Context, orgID string) ([]ObjectRef, error) {
	query := s.dialect.rebind("SELECT durable_id, api_name, custom FROM sobjects WHERE org_id = ? ORDER BY api_name")
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []ObjectRef
	for rows.Next() {
		var ref ObjectRef
		if err := rows.Scan(&ref.DurableID, &ref.APIName, &ref.Custom); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Field is one field row keyed by (org_id, durable_id) and linked to its
// owning object by durable id.
type Field struct {
	OrgID            string
	DurableID        string
	ObjectDurableID  string
	ObjectAPIName    string
	APIName          string
	Label            string
	FieldType        string
	FieldLength      int
	Custom           bool
	Required         bool
	Unique           bool
	ExternalID       bool
	ReferenceTo      string
	RelationshipName string
	Formula          string
	DefaultValue     string
	HelpText         string
	Raw              string
	SyncedAt         time.Time
}

var fieldColumns = []string{"org_id", "durable_id", "object_durable_id", "object_api_name", "api_name", "label", "field_type", "field_length", "custom", "required", "unique_field", "external_id", "reference_to", "relationship_name", "formula", "default_value", "help_text", "raw", "synced_at"}

// SaveField upserts a field row.
func (s *Store) SaveField(ctx context.Context, tx Execer, f Field) error {
	query := s.dialect.rebind(s.dialect.upsert("fields", fieldColumns, []string{"org_id", "durable_id"}))
	_, err := tx.ExecContext(ctx, query, f.OrgID, f.DurableID, f.ObjectDurableID, f.ObjectAPIName, f.APIName, f.Label, f.FieldType, f.FieldLength, f.Custom, f.Required, f.Unique, f.ExternalID, f.ReferenceTo, f.RelationshipName, f.Formula, f.DefaultValue, f.HelpText, f.Raw, formatTime(f.SyncedAt))
	return err
}

// ReferenceField is the projection of a field row the relationship extractor
// consumes: only fields with a non-empty reference target.
type ReferenceField struct {
	ObjectAPIName    string
	APIName          string
	FieldType        string
	ReferenceTo      string
	RelationshipName string
	ExternalID       bool
	Raw              string
}

// ListReferenceFields returns every field in the org that targets another
// object.
func (s *Store) ListReferenceFields(ctx context.Context, orgID string) ([]ReferenceField, error) {
	query := s.dialect.rebind("SELECT object_api_name, api_name, field_type, reference_to, relationship_name, external_id, raw FROM fields WHERE org_id = ? AND reference_to <> '' ORDER BY object_api_name, api_name")
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var fields []ReferenceField
	for rows.Next() {
		var f ReferenceField
		if err := rows.Scan(&f.ObjectAPIName, &f.APIName, &f.FieldType, &f.ReferenceTo, &f.RelationshipName, &f.ExternalID, &f.Raw); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// Flow is one flow version row keyed by (org_id, api_name, version).
type Flow struct {
	OrgID            string
	FlowID           string
	APIName          string
	Version          int
	Label            string
	ProcessType      string
	TriggerType      string
	TriggerObject    string
	Active           bool
	Status           string
	Description      string
	ElementCounts    string
	HasRecordLookups bool
	HasRecordCreates bool
	HasRecordUpdates bool
	HasRecordDeletes bool
	ContentHash      string
	SyncedAt         time.Time
}

var flowColumns = []string{"org_id", "flow_id", "api_name", "version", "label", "process_type", "trigger_type", "trigger_object", "active", "status", "description", "element_counts", "has_record_lookups", "has_record_creates", "has_record_updates", "has_record_deletes", "content_hash", "synced_at"}

// SaveFlow upserts a flow metadata row.
func (s *Store) SaveFlow(ctx context.Context, tx Execer, f Flow) error {
	query := s.dialect.rebind(s.dialect.upsert("flows", flowColumns, []string{"org_id", "api_name", "version"}))
	_, err := tx.ExecContext(ctx, query, f.OrgID, f.FlowID, f.APIName, f.Version, f.Label, f.ProcessType, f.TriggerType, f.TriggerObject, f.Active, f.Status, f.Description, f.ElementCounts, f.HasRecordLookups, f.HasRecordCreates, f.HasRecordUpdates, f.HasRecordDeletes, f.ContentHash, formatTime(f.SyncedAt))
	return err
}

// FlowFieldReference is one parser output row, keyed by its full tuple so a
// re-parse of the same document collapses to the same rows.
type FlowFieldReference struct {
	OrgID        string
	FlowID       string
	FlowAPIName  string
	Version      int
	ObjectName   string
	FieldName    string
	ElementName  string
	ElementType  string
	IsInput      bool
	IsOutput     bool
	VariableName string
}

var flowReferenceColumns = []string{"org_id", "flow_id", "flow_api_name", "version", "object_name", "field_name", "element_name", "element_type", "is_input", "is_output", "variable_name"}
var flowReferenceKeys = []string{"org_id", "flow_id", "version", "object_name", "field_name", "element_name", "element_type"}

// SaveFlowFieldReference upserts one field reference row.
func (s *Store) SaveFlowFieldReference(ctx context.Context, tx Execer, r FlowFieldReference) error {
	query := s.dialect.rebind(s.dialect.upsert("flow_field_references", flowReferenceColumns, flowReferenceKeys))
	_, err := tx.ExecContext(ctx, query, r.OrgID, r.FlowID, r.FlowAPIName, r.Version, r.ObjectName, r.FieldName, r.ElementName, r.ElementType, r.IsInput, r.IsOutput, r.VariableName)
	return err
}

// DeleteFlowArtifacts clears the reference and dependency rows for one flow
// before its current version is written, so references dropped between
// versions do not linger.
func (s *Store) DeleteFlowArtifacts(ctx context.Context, tx Execer, orgID string, flowID string, alias string, apiName string) error {
	if _, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM flow_field_references WHERE org_id = ? AND flow_id = ?"), orgID, flowID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM field_dependencies WHERE alias = ? AND dependent_type = ? AND dependent_name = ?"), alias, "flow", apiName)
	return err
}

// FieldDependency is one row of the "what touches this field" index. Every
// column is part of the key.
type FieldDependency struct {
	Alias         string
	ObjectName    string
	FieldName     string
	DependentType string
	DependentName string
	ReferenceType string
}

var fieldDependencyColumns = []string{"alias", "object_name", "field_name", "dependent_type", "dependent_name", "reference_type"}

// SaveFieldDependency inserts a dependency row, ignoring duplicates.
func (s *Store) SaveFieldDependency(ctx context.Context, tx Execer, d FieldDependency) error {
	query := s.dialect.rebind(s.dialect.upsert("field_dependencies", fieldDependencyColumns, fieldDependencyColumns))
	_, err := tx.ExecContext(ctx, query, d.Alias, d.ObjectName, d.FieldName, d.DependentType, d.DependentName, d.ReferenceType)
	return err
}

// Trigger is one trigger row with its detected event flags.
type Trigger struct {
	OrgID         string
	TriggerID     string
	Name          string
	ObjectName    string
	Active        bool
	BeforeInsert  bool
	BeforeUpdate  bool
	BeforeDelete  bool
	AfterInsert   bool
	AfterUpdate   bool
	AfterDelete   bool
	AfterUndelete bool
	APIVersion    string
	BodyLength    int
	SyncedAt      time.Time
}

var triggerColumns = []string{"org_id", "trigger_id", "name", "object_name", "active", "before_insert", "before_update", "before_delete", "after_insert", "after_update", "after_delete", "after_undelete", "api_version", "body_length", "synced_at"}

// SaveTrigger upserts a trigger row keyed by trigger id.
func (s *Store) SaveTrigger(ctx context.Context, tx Execer, t Trigger) error {
	query := s.dialect.rebind(s.dialect.upsert("triggers", triggerColumns, []string{"org_id", "trigger_id"}))
	_, err := tx.ExecContext(ctx, query, t.OrgID, t.TriggerID, t.Name, t.ObjectName, t.Active, t.BeforeInsert, t.BeforeUpdate, t.BeforeDelete, t.AfterInsert, t.AfterUpdate, t.AfterDelete, t.AfterUndelete, t.APIVersion, t.BodyLength, formatTime(t.SyncedAt))
	return err
}

// FieldRelationship is one (source field, target object) pair. A polymorphic
// lookup contributes one row per target.
type FieldRelationship struct {
	Alias            string
	SourceObject     string
	SourceField      string
	TargetObject     string
	RelationshipType string
	RelationshipName string
	CascadeDelete    bool
	Reparentable     bool
}

var fieldRelationshipColumns = []string{"alias", "source_object", "source_field", "target_object", "relationship_type", "relationship_name", "cascade_delete", "reparentable"}
var fieldRelationshipKeys = []string{"alias", "source_object", "source_field", "target_object"}

// SaveFieldRelationship upserts a field relationship row.
func (s *Store) SaveFieldRelationship(ctx context.Context, tx Execer, r FieldRelationship) error {
	query := s.dialect.rebind(s.dialect.upsert("field_relationships", fieldRelationshipColumns, fieldRelationshipKeys))
	_, err := tx.ExecContext(ctx, query, r.Alias, r.SourceObject, r.SourceField, r.TargetObject, r.RelationshipType, r.RelationshipName, r.CascadeDelete, r.Reparentable)
	return err
}

// ObjectRelationship is the object-level projection of a field relationship:
// parent is the lookup target, child the object holding the field.
type ObjectRelationship struct {
	Alias            string
	ParentObject     string
	ChildObject      string
	FieldName        string
	RelationshipType string
}

var objectRelationshipColumns = []string{"alias", "parent_object", "child_object", "field_name", "relationship_type"}
var objectRelationshipKeys = []string{"alias", "parent_object", "child_object", "field_name"}

// SaveObjectRelationship upserts an object relationship row.
func (s *Store) SaveObjectRelationship(ctx context.Context, tx Execer, r ObjectRelationship) error {
	query := s.dialect.rebind(s.dialect.upsert("object_relationships", objectRelationshipColumns, objectRelationshipKeys))
	_, err := tx.ExecContext(ctx, query, r.Alias, r.ParentObject, r.ChildObject, r.FieldName, r.RelationshipType)
	return err
}

// SyncRun is one completed pipeline run with its per-stage counts.
type SyncRun struct {
	RunID         string
	Alias         string
	OrgID         string
	Objects       int
	Fields        int
	Flows         int
	Triggers      int
	Relationships int
	StartedAt     time.Time
	CompletedAt   time.Time
}

var syncRunColumns = []string{"run_id", "alias", "org_id", "objects", "fields", "flows", "triggers", "relationships", "started_at", "completed_at"}

// SaveSyncRun records a completed run.
func (s *Store) SaveSyncRun(ctx context.Context, run SyncRun) error {
	query := s.dialect.rebind(s.dialect.upsert("sync_runs", syncRunColumns, []string{"run_id"}))
	_, err := s.db.ExecContext(ctx, query, run.RunID, run.Alias, run.OrgID, run.Objects, run.Fields, run.Flows, run.Triggers, run.Relationships, formatTime(run.StartedAt), formatTime(run.CompletedAt))
	return err
}
