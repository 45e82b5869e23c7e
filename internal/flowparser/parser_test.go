package flowparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleFlow = `<?xml version="1.0" encoding="UTF-8"?>
<Flow xmlns="http://soap.sforce.com/2006/04/metadata">
    <description>Keeps account contact info in sync</description>
    <processType>AutoLaunchedFlow</processType>
    <status>Active</status>
    <start>
        <triggerType>RecordAfterSave</triggerType>
        <object>Account</object>
    </start>
    <recordLookups>
        <name>FindContact</name>
        <object>Contact</object>
        <filters>
            <field>AccountId</field>
        </filters>
        <outputAssignments>
            <assignToReference>varEmail</assignToReference>
            <field>Email</field>
        </outputAssignments>
    </recordLookups>
    <recordUpdates>
        <name>UpdateAccount</name>
        <object>Account</object>
        <filters>
            <field>Id</field>
        </filters>
        <inputAssignments>
            <field>Email__c</field>
        </inputAssignments>
    </recordUpdates>
    <assignments>
        <name>CopyPhone</name>
        <assignmentItems>
            <assignToReference>Account.Phone</assignToReference>
            <value>
                <elementReference>Contact.Phone</elementReference>
            </value>
        </assignmentItems>
    </assignments>
    <decisions>
        <name>CheckStatus</name>
        <rules>
            <conditions>
                <leftValueReference>Account.Status__c</leftValueReference>
                <rightValue>
                    <elementReference>Contact.Status__c</elementReference>
                </rightValue>
            </conditions>
        </rules>
    </decisions>
    <screens>
        <name>Confirm</name>
    </screens>
</Flow>`

func findRef(refs []FieldReference, object, field, element string) *FieldReference {
	for i, ref := range refs {
		if ref.ObjectName == object && ref.FieldName == field && ref.ElementName == element {
			return &refs[i]
		}
	}
	return nil
}

func TestParseMetadata(t *testing.T) {
	res := Parse(sampleFlow)
	assert.NoError(t, res.Err)
	assert.NotNil(t, res.Metadata.ProcessType)
	assert.Equal(t, "AutoLaunchedFlow", *res.Metadata.ProcessType)
	assert.NotNil(t, res.Metadata.TriggerType)
	assert.Equal(t, "RecordAfterSave", *res.Metadata.TriggerType)
	assert.NotNil(t, res.Metadata.TriggerObject)
	assert.Equal(t, "Account", *res.Metadata.TriggerObject)
	assert.NotNil(t, res.Metadata.Status)
	assert.Equal(t, "Active", *res.Metadata.Status)
	assert.True(t, res.Metadata.IsActive)
	assert.NotNil(t, res.Metadata.Description)
}

func TestParseMetadataAbsentFields(t *testing.T) {
	res := Parse(`<Flow xmlns="http://soap.sforce.com/2006/04/metadata"><status>Draft</status></Flow>`)
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Metadata.ProcessType)
	assert.Nil(t, res.Metadata.TriggerType)
	assert.Nil(t, res.Metadata.TriggerObject)
	assert.Nil(t, res.Metadata.Description)
	assert.False(t, res.Metadata.IsActive)
}

func TestParseRecordOperations(t *testing.T) {
	res := Parse(sampleFlow)
	assert.NoError(t, res.Err)

	// filter criteria are reads
	ref := findRef(res.FieldReferences, "Contact", "AccountId", "FindContact")
	assert.NotNil(t, ref)
	assert.True(t, ref.IsInput)
	assert.False(t, ref.IsOutput)
	assert.Equal(t, ElementRecordLookup, ref.ElementType)

	// lookup output assignment reads the field back and carries the variable
	ref = findRef(res.FieldReferences, "Contact", "Email", "FindContact")
	assert.NotNil(t, ref)
	assert.True(t, ref.IsInput)
	assert.False(t, ref.IsOutput)
	assert.Equal(t, "varEmail", ref.VariableName)

	// update input assignment writes the field
	ref = findRef(res.FieldReferences, "Account", "Email__c", "UpdateAccount")
	assert.NotNil(t, ref)
	assert.False(t, ref.IsInput)
	assert.True(t, ref.IsOutput)
	assert.Equal(t, ElementRecordUpdate, ref.ElementType)
}

func TestParseAssignments(t *testing.T) {
	res := Parse(sampleFlow)
	assert.NoError(t, res.Err)

	ref := findRef(res.FieldReferences, "Account", "Phone", "CopyPhone")
	assert.NotNil(t, ref)
	assert.True(t, ref.IsOutput)
	assert.False(t, ref.IsInput)
	assert.Equal(t, ElementAssignment, ref.ElementType)

	ref = findRef(res.FieldReferences, "Contact", "Phone", "CopyPhone")
	assert.NotNil(t, ref)
	assert.True(t, ref.IsInput)
	assert.False(t, ref.IsOutput)
}

func TestParseDecisionsNeverWrite(t *testing.T) {
	res := Parse(sampleFlow)
	assert.NoError(t, res.Err)
	for _, ref := range res.FieldReferences {
		if ref.ElementType == ElementDecision {
			assert.True(t, ref.IsInput)
			assert.False(t, ref.IsOutput)
		}
	}
	assert.NotNil(t, findRef(res.FieldReferences, "Account", "Status__c", "CheckStatus"))
	assert.NotNil(t, findRef(res.FieldReferences, "Contact", "Status__c", "CheckStatus"))
}

func TestParseElementCounts(t *testing.T) {
	res := Parse(sampleFlow)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.ElementCounts.RecordLookups)
	assert.Equal(t, 1, res.ElementCounts.RecordUpdates)
	assert.Equal(t, 0, res.ElementCounts.RecordCreates)
	assert.Equal(t, 0, res.ElementCounts.RecordDeletes)
	assert.Equal(t, 1, res.ElementCounts.Assignments)
	assert.Equal(t, 1, res.ElementCounts.Decisions)
	assert.Equal(t, 1, res.ElementCounts.Screens)
	assert.Equal(t, 5, res.ElementCounts.Total)
}

func TestParseDeterministic(t *testing.T) {
	a := Parse(sampleFlow)
	b := Parse(sampleFlow)
	assert.Equal(t, a, b)
}

func TestParseMalformed(t *testing.T) {
	res := Parse("<Flow><unclosed>")
	assert.Error(t, res.Err)
	assert.Empty(t, res.FieldReferences)
	assert.Equal(t, ElementCounts{}, res.ElementCounts)
	assert.Equal(t, Metadata{}, res.Metadata)
}

func TestParseRecordOpWithoutObjectSkipped(t *testing.T) {
	res := Parse(`<Flow xmlns="http://soap.sforce.com/2006/04/metadata">
        <recordLookups>
            <name>Orphan</name>
            <filters><field>Id</field></filters>
        </recordLookups>
    </Flow>`)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.FieldReferences)
	assert.Equal(t, 1, res.ElementCounts.RecordLookups)
}

func TestParseDuplicateReferencesAllEmitted(t *testing.T) {
	res := Parse(`<Flow xmlns="http://soap.sforce.com/2006/04/metadata">
        <recordUpdates>
            <name>Twice</name>
            <object>Account</object>
            <inputAssignments><field>Name</field></inputAssignments>
            <inputAssignments><field>Name</field></inputAssignments>
        </recordUpdates>
    </Flow>`)
	assert.NoError(t, res.Err)
	assert.Len(t, res.FieldReferences, 2)
}

func TestParseMissingElementName(t *testing.T) {
	res := Parse(`<Flow xmlns="http://soap.sforce.com/2006/04/metadata">
        <recordLookups>
            <object>Account</object>
            <filters><field>Id</field></filters>
        </recordLookups>
    </Flow>`)
	assert.NoError(t, res.Err)
	assert.Len(t, res.FieldReferences, 1)
	assert.Equal(t, "Unknown", res.FieldReferences[0].ElementName)
}
