package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/store"
)

const (
	relationshipLookup         = "lookup"
	relationshipMasterDetail   = "master_detail"
	relationshipExternalLookup = "external_lookup"
)

// RelationshipExtractor post-processes synced field rows into field and
// object level relationship rows. Reads only what the field sync stage
// already committed, so it must run after it.
type RelationshipExtractor struct {
	store  *store.Store
	logger logger.Logger
	orgID  string
	alias  string
}

// NewRelationshipExtractor creates the relationship extraction stage.
func NewRelationshipExtractor(log logger.Logger, st *store.Store, orgID string, alias string) *RelationshipExtractor {
	return &RelationshipExtractor{
		store:  st,
		logger: log.WithPrefix("[relationships]"),
		orgID:  orgID,
		alias:  alias,
	}
}

// Extract scans every reference field and upserts one field relationship and
// one object relationship row per (field, target) pair. A polymorphic lookup
// with N targets yields N rows. Re-running over unchanged fields produces
// the same row set.
func (r *RelationshipExtractor) Extract(ctx context.Context) (int, error) {
	fields, err := r.store.ListReferenceFields(ctx, r.orgID)
	if err != nil {
		return 0, fmt.Errorf("error listing reference fields: %w", err)
	}
	var count int
	err = r.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, field := range fields {
			kind := classifyRelationship(field)
			cascade, reparentable := rawRelationshipFlags(field.Raw)
			for _, target := range splitTargets(field.ReferenceTo) {
				fieldRel := store.FieldRelationship{
					Alias:            r.alias,
					SourceObject:     field.ObjectAPIName,
					SourceField:      field.APIName,
					TargetObject:     target,
					RelationshipType: kind,
					RelationshipName: field.RelationshipName,
					CascadeDelete:    cascade,
					Reparentable:     reparentable,
				}
				if err := r.store.SaveFieldRelationship(ctx, tx, fieldRel); err != nil {
					return fmt.Errorf("error saving relationship %s.%s -> %s: %w", field.ObjectAPIName, field.APIName, target, err)
				}
				objectRel := store.ObjectRelationship{
					Alias:            r.alias,
					ParentObject:     target,
					ChildObject:      field.ObjectAPIName,
					FieldName:        field.APIName,
					RelationshipType: kind,
				}
				if err := r.store.SaveObjectRelationship(ctx, tx, objectRel); err != nil {
					return fmt.Errorf("error saving relationship %s -> %s: %w", target, field.ObjectAPIName, err)
				}
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("extracted %d relationships from %d reference fields", count, len(fields))
	return count, nil
}

// classifyRelationship picks the relationship kind from the declared field
// type and metadata flags.
func classifyRelationship(field store.ReferenceField) string {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(field.FieldType))
	if normalized == "masterdetail" {
		return relationshipMasterDetail
	}
	if field.ExternalID {
		return relationshipExternalLookup
	}
	return relationshipLookup
}

// rawRelationshipFlags reads the cascade delete and reparentable flags out of
// the stored describe blob.
func rawRelationshipFlags(raw string) (bool, bool) {
	if raw == "" {
		return false, false
	}
	var meta struct {
		CascadeDelete            bool `json:"cascadeDelete"`
		ReparentableMasterDetail bool `json:"reparentableMasterDetail"`
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return false, false
	}
	return meta.CascadeDelete, meta.ReparentableMasterDetail
}

func splitTargets(referenceTo string) []string {
	var targets []string
	for _, target := range strings.Split(referenceTo, ",") {
		target = strings.TrimSpace(target)
		if target != "" {
			targets = append(targets, target)
		}
	}
	return targets
}
