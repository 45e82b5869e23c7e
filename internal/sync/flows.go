package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/flowparser"
	"github.com/shopmonkeyus/mds/internal/salesforce"
	"github.com/shopmonkeyus/mds/internal/store"
	"github.com/shopmonkeyus/mds/internal/tracker"
	"github.com/shopmonkeyus/mds/internal/util"
)

// Reference kinds for the dependency index. A write wins over a read wins
// over a bare reference.
const (
	referenceWrite   = "write"
	referenceRead    = "read"
	referenceUnknown = "reference"
)

const (
	dependentFlow    = "flow"
	dependentTrigger = "trigger"
)

// triggerEventPhrases are the event phases substring-detected in trigger
// source text. Text matching, not parsing: a phrase inside a comment or
// string literal still counts.
var triggerEventPhrases = []string{
	"before insert",
	"before update",
	"before delete",
	"after insert",
	"after update",
	"after delete",
	"after undelete",
}

// FlowAndTriggerSyncer walks remote automation definitions into the store.
type FlowAndTriggerSyncer struct {
	client  salesforce.Client
	store   *store.Store
	tracker *tracker.Tracker
	logger  logger.Logger
	orgID   string
	alias   string
}

// NewFlowAndTriggerSyncer creates the flow and trigger sync stages. The
// tracker is optional and only used for content hash bookkeeping.
func NewFlowAndTriggerSyncer(log logger.Logger, client salesforce.Client, st *store.Store, tr *tracker.Tracker, orgID string, alias string) *FlowAndTriggerSyncer {
	return &FlowAndTriggerSyncer{
		client:  client,
		store:   st,
		tracker: tr,
		logger:  log.WithPrefix("[flows]"),
		orgID:   orgID,
		alias:   alias,
	}
}

// SyncFlows fetches the XML of every active flow version, parses it and
// replaces the flow's metadata, field reference and dependency rows. A fetch
// or parse failure skips that flow only.
func (s *FlowAndTriggerSyncer) SyncFlows(ctx context.Context) (int, []Skip, error) {
	definitions, err := s.client.ToolingQuery(ctx, "SELECT Id, DeveloperName, ActiveVersionId, ActiveVersion.VersionNumber, ActiveVersion.MasterLabel, ActiveVersion.Description FROM FlowDefinition WHERE ActiveVersionId != null")
	if err != nil {
		return 0, nil, fmt.Errorf("flow definition query failed: %w", err)
	}
	now := time.Now()
	var count int
	var skips []Skip
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, definition := range definitions {
			apiName := definition.GetString("DeveloperName")
			versionID := definition.GetString("ActiveVersionId")
			if versionID == "" {
				s.logger.Warn("skipping flow %s: no active version", apiName)
				skips = append(skips, Skip{Item: apiName, Reason: "no active version"})
				continue
			}
			xmlText, err := s.client.FlowVersionMetadata(ctx, versionID)
			if err != nil {
				s.logger.Warn("skipping flow %s: %s", apiName, err)
				skips = append(skips, Skip{Item: apiName, Reason: err.Error()})
				continue
			}
			result := flowparser.Parse(xmlText)
			if result.Err != nil {
				s.logger.Warn("skipping flow %s: %s", apiName, result.Err)
				skips = append(skips, Skip{Item: apiName, Reason: result.Err.Error()})
				continue
			}
			if err := s.saveFlow(ctx, tx, definition, result, xmlText, now); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, skips, err
	}
	s.logger.Info("synced %d flows (%d skipped)", count, len(skips))
	return count, skips, nil
}

func (s *FlowAndTriggerSyncer) saveFlow(ctx context.Context, tx *sql.Tx, definition salesforce.Record, result flowparser.Result, xmlText string, now time.Time) error {
	flowID := definition.GetString("Id")
	apiName := definition.GetString("DeveloperName")
	version := definition.GetRecord("ActiveVersion")
	hash := util.Hash(xmlText)
	s.noteContentHash(apiName, hash)

	counts := result.ElementCounts
	row := store.Flow{
		OrgID:            s.orgID,
		FlowID:           flowID,
		APIName:          apiName,
		Version:          version.GetInt("VersionNumber"),
		Label:            version.GetString("MasterLabel"),
		ProcessType:      stringValue(result.Metadata.ProcessType),
		TriggerType:      stringValue(result.Metadata.TriggerType),
		TriggerObject:    stringValue(result.Metadata.TriggerObject),
		Active:           result.Metadata.IsActive,
		Status:           stringValue(result.Metadata.Status),
		Description:      flowDescription(result.Metadata.Description, version),
		ElementCounts:    util.JSONStringify(counts),
		HasRecordLookups: counts.RecordLookups > 0,
		HasRecordCreates: counts.RecordCreates > 0,
		HasRecordUpdates: counts.RecordUpdates > 0,
		HasRecordDeletes: counts.RecordDeletes > 0,
		ContentHash:      hash,
		SyncedAt:         now,
	}
	if err := s.store.DeleteFlowArtifacts(ctx, tx, s.orgID, flowID, s.alias, apiName); err != nil {
		return fmt.Errorf("error clearing rows for flow %s: %w", apiName, err)
	}
	if err := s.store.SaveFlow(ctx, tx, row); err != nil {
		return fmt.Errorf("error saving flow %s: %w", apiName, err)
	}
	for _, reference := range result.FieldReferences {
		ref := store.FlowFieldReference{
			OrgID:        s.orgID,
			FlowID:       flowID,
			FlowAPIName:  apiName,
			Version:      row.Version,
			ObjectName:   reference.ObjectName,
			FieldName:    reference.FieldName,
			ElementName:  reference.ElementName,
			ElementType:  reference.ElementType,
			IsInput:      reference.IsInput,
			IsOutput:     reference.IsOutput,
			VariableName: reference.VariableName,
		}
		if err := s.store.SaveFlowFieldReference(ctx, tx, ref); err != nil {
			return fmt.Errorf("error saving reference %s.%s for flow %s: %w", reference.ObjectName, reference.FieldName, apiName, err)
		}
		dependency := store.FieldDependency{
			Alias:         s.alias,
			ObjectName:    reference.ObjectName,
			FieldName:     reference.FieldName,
			DependentType: dependentFlow,
			DependentName: apiName,
			ReferenceType: referenceKind(reference),
		}
		if err := s.store.SaveFieldDependency(ctx, tx, dependency); err != nil {
			return fmt.Errorf("error saving dependency %s.%s for flow %s: %w", reference.ObjectName, reference.FieldName, apiName, err)
		}
	}
	return nil
}

func (s *FlowAndTriggerSyncer) noteContentHash(apiName string, hash string) {
	if s.tracker == nil {
		return
	}
	key := "flowhash:" + s.alias + ":" + apiName
	found, previous, err := s.tracker.GetKey(key)
	if err == nil && found && previous == hash {
		s.logger.Trace("flow %s unchanged (hash %s)", apiName, hash)
	}
	if err := s.tracker.SetKey(key, hash, 0); err != nil {
		s.logger.Debug("error recording hash for flow %s: %s", apiName, err)
	}
}

// referenceKind resolves write > read > reference. Any output reference is a
// write regardless of its input flag.
func referenceKind(reference flowparser.FieldReference) string {
	if reference.IsOutput {
		return referenceWrite
	}
	if reference.IsInput {
		return referenceRead
	}
	return referenceUnknown
}

// SyncTriggers detects event phases in active trigger bodies and upserts one
// row per trigger. Detection never fails, only the query or the commit can.
func (s *FlowAndTriggerSyncer) SyncTriggers(ctx context.Context) (int, error) {
	records, err := s.client.ToolingQuery(ctx, "SELECT Id, Name, TableEnumOrId, ApiVersion, Status, Body FROM ApexTrigger WHERE Status = 'Active'")
	if err != nil {
		return 0, fmt.Errorf("trigger query failed: %w", err)
	}
	now := time.Now()
	var count int
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, record := range records {
			body := strings.ToLower(record.GetString("Body"))
			events := make([]bool, len(triggerEventPhrases))
			for i, phrase := range triggerEventPhrases {
				events[i] = strings.Contains(body, phrase)
			}
			row := store.Trigger{
				OrgID:         s.orgID,
				TriggerID:     record.GetString("Id"),
				Name:          record.GetString("Name"),
				ObjectName:    record.GetString("TableEnumOrId"),
				Active:        record.GetString("Status") == "Active",
				BeforeInsert:  events[0],
				BeforeUpdate:  events[1],
				BeforeDelete:  events[2],
				AfterInsert:   events[3],
				AfterUpdate:   events[4],
				AfterDelete:   events[5],
				AfterUndelete: events[6],
				APIVersion:    apiVersionString(record),
				BodyLength:    len(record.GetString("Body")),
				SyncedAt:      now,
			}
			if err := s.store.SaveTrigger(ctx, tx, row); err != nil {
				return fmt.Errorf("error saving trigger %s: %w", row.Name, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("synced %d triggers", count)
	return count, nil
}

// apiVersionString normalizes the numeric ApiVersion attribute.
func apiVersionString(record salesforce.Record) string {
	if f, ok := record["ApiVersion"].(float64); ok {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return record.GetString("ApiVersion")
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}

func flowDescription(parsed *string, version salesforce.Record) string {
	if parsed != nil {
		return *parsed
	}
	if version != nil {
		return version.GetString("Description")
	}
	return ""
}
