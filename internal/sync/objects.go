package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/salesforce"
	"github.com/shopmonkeyus/mds/internal/store"
)

// Skip records one item a stage passed over and why. Skips are surfaced on
// the summary instead of aborting the stage.
type Skip struct {
	Item   string
	Reason string
}

// ObjectFieldSyncer walks the remote object and field catalogs into the
// store.
type ObjectFieldSyncer struct {
	client   salesforce.Client
	store    *store.Store
	resolver *IdentityResolver
	logger   logger.Logger
	orgID    string
}

// NewObjectFieldSyncer creates the object and field sync stages.
func NewObjectFieldSyncer(log logger.Logger, client salesforce.Client, st *store.Store, resolver *IdentityResolver, orgID string) *ObjectFieldSyncer {
	return &ObjectFieldSyncer{
		client:   client,
		store:    st,
		resolver: resolver,
		logger:   log.WithPrefix("[objects]"),
		orgID:    orgID,
	}
}

// SyncObjects fetches the full object catalog and upserts one row per object
// keyed by durable identity. A catalog fetch failure is fatal: with no
// objects there is nothing useful to sync.
func (s *ObjectFieldSyncer) SyncObjects(ctx context.Context) (int, error) {
	objects, err := s.client.DescribeGlobal(ctx)
	if err != nil {
		return 0, fmt.Errorf("object catalog describe failed: %w", err)
	}
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		names = append(names, object.Name)
	}
	identities := s.resolver.ResolveObjects(ctx, names)
	now := time.Now()
	var count int
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, object := range objects {
			row := store.Object{
				OrgID:       s.orgID,
				DurableID:   identities[object.Name].Value,
				APIName:     object.Name,
				Label:       object.Label,
				LabelPlural: object.LabelPlural,
				Custom:      object.Custom,
				KeyPrefix:   object.KeyPrefix,
				Queryable:   object.Queryable,
				Createable:  object.Createable,
				Updateable:  object.Updateable,
				Deletable:   object.Deletable,
				Raw:         string(object.Raw),
				SyncedAt:    now,
			}
			if err := s.store.SaveObject(ctx, tx, row); err != nil {
				return fmt.Errorf("error saving object %s: %w", object.Name, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("synced %d objects", count)
	return count, nil
}

// SyncFields describes every synced object and upserts its fields keyed by
// durable identity, linked to the owning object's durable identity. A single
// object's describe failure skips only that object's fields.
func (s *ObjectFieldSyncer) SyncFields(ctx context.Context) (int, []Skip, error) {
	objects, err := s.store.ListObjects(ctx, s.orgID)
	if err != nil {
		return 0, nil, fmt.Errorf("error listing objects: %w", err)
	}
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		names = append(names, object.APIName)
	}
	// A durable id can legitimately equal the API name, so whether resolution
	// succeeded cannot be recovered from the stored value. Resolve again.
	identities := s.resolver.ResolveObjects(ctx, names)
	now := time.Now()
	var count int
	var skips []Skip
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, object := range objects {
			detail, err := s.client.DescribeSObject(ctx, object.APIName)
			if err != nil {
				s.logger.Warn("skipping fields for %s: %s", object.APIName, err)
				skips = append(skips, Skip{Item: object.APIName, Reason: err.Error()})
				continue
			}
			fieldIdentities := s.resolver.ResolveFields(ctx, identities[object.APIName])
			for _, field := range detail.Fields {
				row := store.Field{
					OrgID:            s.orgID,
					DurableID:        s.resolver.FieldIdentity(fieldIdentities, object.APIName, field.Name).Value,
					ObjectDurableID:  object.DurableID,
					ObjectAPIName:    object.APIName,
					APIName:          field.Name,
					Label:            field.Label,
					FieldType:        field.Type,
					FieldLength:      field.Length,
					Custom:           field.Custom,
					Required:         !field.Nillable,
					Unique:           field.Unique,
					ExternalID:       field.ExternalID,
					ReferenceTo:      strings.Join(field.ReferenceTo, ","),
					RelationshipName: field.RelationshipName,
					Formula:          field.CalculatedFormula,
					DefaultValue:     defaultValueString(field.DefaultValue),
					HelpText:         field.InlineHelpText,
					Raw:              string(field.Raw),
					SyncedAt:         now,
				}
				if err := s.store.SaveField(ctx, tx, row); err != nil {
					return fmt.Errorf("error saving field %s.%s: %w", object.APIName, field.Name, err)
				}
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, skips, err
	}
	s.logger.Info("synced %d fields across %d objects (%d skipped)", count, len(objects)-len(skips), len(skips))
	return count, skips, nil
}

func defaultValueString(val any) string {
	if val == nil {
		return ""
	}
	return fmt.Sprintf("%v", val)
}
