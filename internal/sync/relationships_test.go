package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedField(t *testing.T, st *store.Store, f store.Field) {
	f.OrgID = "00Dtest"
	f.SyncedAt = time.Now()
	require.NoError(t, st.WithTx(context.Background(), func(tx *sql.Tx) error {
		return st.SaveField(context.Background(), tx, f)
	}))
}

func TestExtractPolymorphicLookup(t *testing.T) {
	st, db := newTestStore(t)
	seedField(t, st, store.Field{
		DurableID:        "Task.WhatId",
		ObjectDurableID:  "Task",
		ObjectAPIName:    "Task",
		APIName:          "WhatId",
		FieldType:        "reference",
		ReferenceTo:      "Account,Contact",
		RelationshipName: "What",
	})

	extractor := NewRelationshipExtractor(logger.NewTestLogger(), st, "00Dtest", "test")
	count, err := extractor.Extract(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM field_relationships"))
	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM object_relationships"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM object_relationships WHERE parent_object = ? AND child_object = ?", "Account", "Task"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM object_relationships WHERE parent_object = ? AND child_object = ?", "Contact", "Task"))
}

func TestExtractIdempotent(t *testing.T) {
	st, db := newTestStore(t)
	seedField(t, st, store.Field{
		DurableID:       "Contact.AccountId",
		ObjectDurableID: "Contact",
		ObjectAPIName:   "Contact",
		APIName:         "AccountId",
		FieldType:       "reference",
		ReferenceTo:     "Account",
	})

	extractor := NewRelationshipExtractor(logger.NewTestLogger(), st, "00Dtest", "test")
	_, err := extractor.Extract(context.Background())
	require.NoError(t, err)
	_, err = extractor.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM field_relationships"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM object_relationships"))
}

func TestExtractCascadeFlags(t *testing.T) {
	st, db := newTestStore(t)
	seedField(t, st, store.Field{
		DurableID:       "Line__c.Order__c",
		ObjectDurableID: "Line__c",
		ObjectAPIName:   "Line__c",
		APIName:         "Order__c",
		FieldType:       "masterdetail",
		ReferenceTo:     "Order__c",
		Raw:             `{"cascadeDelete":true,"reparentableMasterDetail":true}`,
	})

	extractor := NewRelationshipExtractor(logger.NewTestLogger(), st, "00Dtest", "test")
	_, err := extractor.Extract(context.Background())
	require.NoError(t, err)

	var kind string
	var cascade, reparentable bool
	require.NoError(t, db.QueryRow("SELECT relationship_type, cascade_delete, reparentable FROM field_relationships WHERE source_field = ?", "Order__c").Scan(&kind, &cascade, &reparentable))
	assert.Equal(t, "master_detail", kind)
	assert.True(t, cascade)
	assert.True(t, reparentable)
}

func TestClassifyRelationship(t *testing.T) {
	assert.Equal(t, "master_detail", classifyRelationship(store.ReferenceField{FieldType: "MasterDetail"}))
	assert.Equal(t, "master_detail", classifyRelationship(store.ReferenceField{FieldType: "Master-Detail"}))
	assert.Equal(t, "external_lookup", classifyRelationship(store.ReferenceField{FieldType: "reference", ExternalID: true}))
	assert.Equal(t, "lookup", classifyRelationship(store.ReferenceField{FieldType: "reference"}))
}

func TestSplitTargets(t *testing.T) {
	assert.Equal(t, []string{"Account", "Contact"}, splitTargets("Account, Contact"))
	assert.Equal(t, []string{"Account"}, splitTargets("Account"))
	assert.Nil(t, splitTargets(""))
}
