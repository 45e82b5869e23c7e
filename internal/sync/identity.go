package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/salesforce"
)

// Identity is a durable identifier for an object or field. When the entity
// definition catalog cannot supply one, Value degenerates to the qualified
// API name and Resolved is false. Callers treat Value as opaque either way.
type Identity struct {
	Value    string
	Resolved bool
}

// ResolvedIdentity wraps a durable id from the remote catalog.
func ResolvedIdentity(id string) Identity {
	return Identity{Value: id, Resolved: true}
}

// FallbackIdentity wraps a qualified API name used when resolution failed.
func FallbackIdentity(qualifiedName string) Identity {
	return Identity{Value: qualifiedName}
}

// IdentityResolver maps API names onto durable identities using the entity
// definition catalog. Identities are re-resolved on every sync run, never
// cached, so a rename on the remote side reconciles to the same local row.
type IdentityResolver struct {
	client salesforce.Client
	logger logger.Logger
}

// NewIdentityResolver creates a resolver over the tooling API.
func NewIdentityResolver(log logger.Logger, client salesforce.Client) *IdentityResolver {
	return &IdentityResolver{
		client: client,
		logger: log.WithPrefix("[identity]"),
	}
}

// ResolveObjects returns an identity for every name in one batched catalog
// query. A query failure degrades every object to fallback identity.
func (r *IdentityResolver) ResolveObjects(ctx context.Context, names []string) map[string]Identity {
	identities := make(map[string]Identity, len(names))
	for _, name := range names {
		identities[name] = FallbackIdentity(name)
	}
	records, err := r.client.ToolingQuery(ctx, "SELECT DurableId, QualifiedApiName FROM EntityDefinition")
	if err != nil {
		r.logger.Debug("entity definition query failed, falling back to name identity: %s", err)
		return identities
	}
	var resolved int
	for _, record := range records {
		name := record.GetString("QualifiedApiName")
		durableID := record.GetString("DurableId")
		if name == "" || durableID == "" {
			continue
		}
		if _, ok := identities[name]; ok {
			identities[name] = ResolvedIdentity(durableID)
			resolved++
		}
	}
	r.logger.Trace("resolved %d of %d object identities", resolved, len(names))
	return identities
}

// ResolveFields returns the durable identities for one object's fields, keyed
// by field API name. A query failure returns an empty map and the caller
// falls back per field through FieldIdentity.
func (r *IdentityResolver) ResolveFields(ctx context.Context, objectIdentity Identity) map[string]Identity {
	identities := make(map[string]Identity)
	if !objectIdentity.Resolved {
		return identities
	}
	soql := fmt.Sprintf("SELECT DurableId, QualifiedApiName FROM FieldDefinition WHERE EntityDefinitionId = '%s'", soqlEscape(objectIdentity.Value))
	records, err := r.client.ToolingQuery(ctx, soql)
	if err != nil {
		r.logger.Debug("field definition query failed for %s, falling back to name identity: %s", objectIdentity.Value, err)
		return identities
	}
	for _, record := range records {
		name := record.GetString("QualifiedApiName")
		durableID := record.GetString("DurableId")
		if name == "" || durableID == "" {
			continue
		}
		identities[name] = ResolvedIdentity(durableID)
	}
	return identities
}

// FieldIdentity picks the resolved identity for a field or falls back to the
// qualified Object.Field name.
func (r *IdentityResolver) FieldIdentity(resolved map[string]Identity, objectName string, fieldName string) Identity {
	if identity, ok := resolved[fieldName]; ok {
		return identity
	}
	return FallbackIdentity(objectName + "." + fieldName)
}

func soqlEscape(val string) string {
	val = strings.ReplaceAll(val, `\`, `\\`)
	return strings.ReplaceAll(val, "'", `\'`)
}
