package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// SearchResult is one fuzzy search hit. FieldName is empty for object hits.
type SearchResult struct {
	ObjectName string
	FieldName  string
	Label      string
	FieldType  string
	Custom     bool
}

// escapeLike neutralizes LIKE wildcards in user input. The escape character
// is ! because a backslash literal is not portable to MySQL.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, "!", "!!")
	term = strings.ReplaceAll(term, "%", "!%")
	return strings.ReplaceAll(term, "_", "!_")
}

// likePatterns is the escalation order for fuzzy matching: exact name, then
// prefix, then substring. The first pattern with hits wins.
func likePatterns(term string) []string {
	escaped := escapeLike(term)
	return []string{escaped, escaped + "%", "%" + escaped + "%"}
}

// SearchObjects finds objects whose API name or label matches term.
func (s *Store) SearchObjects(ctx context.Context, orgID string, term string, limit int) ([]SearchResult, error) {
	query := s.dialect.rebind("SELECT api_name, label, custom FROM sobjects WHERE org_id = ? AND (LOWER(api_name) LIKE LOWER(?) ESCAPE '!' OR LOWER(label) LIKE LOWER(?) ESCAPE '!') ORDER BY api_name LIMIT " + itoa(limit))
	for _, pattern := range likePatterns(term) {
		rows, err := s.db.QueryContext(ctx, query, orgID, pattern, pattern)
		if err != nil {
			return nil, err
		}
		results, err := scanSearchResults(rows, false)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, nil
}

// SearchFields finds fields whose API name or label matches term.
func (s *Store) SearchFields(ctx context.Context, orgID string, term string, limit int) ([]SearchResult, error) {
	query := s.dialect.rebind("SELECT object_api_name, api_name, label, field_type, custom FROM fields WHERE org_id = ? AND (LOWER(api_name) LIKE LOWER(?) ESCAPE '!' OR LOWER(label) LIKE LOWER(?) ESCAPE '!') ORDER BY object_api_name, api_name LIMIT " + itoa(limit))
	for _, pattern := range likePatterns(term) {
		rows, err := s.db.QueryContext(ctx, query, orgID, pattern, pattern)
		if err != nil {
			return nil, err
		}
		results, err := scanSearchResults(rows, true)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, nil
}

func scanSearchResults(rows *sql.Rows, fields bool) ([]SearchResult, error) {
	defer rows.Close()
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var err error
		if fields {
			err = rows.Scan(&r.ObjectName, &r.FieldName, &r.Label, &r.FieldType, &r.Custom)
		} else {
			err = rows.Scan(&r.ObjectName, &r.Label, &r.Custom)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Dependencies returns every automation row touching object.field.
func (s *Store) Dependencies(ctx context.Context, alias string, object string, field string) ([]FieldDependency, error) {
	query := s.dialect.rebind("SELECT alias, object_name, field_name, dependent_type, dependent_name, reference_type FROM field_dependencies WHERE alias = ? AND object_name = ? AND field_name = ? ORDER BY dependent_type, dependent_name")
	rows, err := s.db.QueryContext(ctx, query, alias, object, field)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deps []FieldDependency
	for rows.Next() {
		var d FieldDependency
		if err := rows.Scan(&d.Alias, &d.ObjectName, &d.FieldName, &d.DependentType, &d.DependentName, &d.ReferenceType); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// ObjectGraph returns every object relationship in which object participates
// as parent or child.
func (s *Store) ObjectGraph(ctx context.Context, alias string, object string) ([]ObjectRelationship, error) {
	query := s.dialect.rebind("SELECT alias, parent_object, child_object, field_name, relationship_type FROM object_relationships WHERE alias = ? AND (parent_object = ? OR child_object = ?) ORDER BY parent_object, child_object, field_name")
	rows, err := s.db.QueryContext(ctx, query, alias, object, object)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rels []ObjectRelationship
	for rows.Next() {
		var r ObjectRelationship
		if err := rows.Scan(&r.Alias, &r.ParentObject, &r.ChildObject, &r.FieldName, &r.RelationshipType); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// Stats are the cache totals read straight from the tables.
type Stats struct {
	Objects       int
	CustomObjects int
	Fields        int
	CustomFields  int
	Flows         int
	Triggers      int
	Relationships int
	LastSync      time.Time
}

// Stats summarizes what the cache holds for one org.
func (s *Store) Stats(ctx context.Context, orgID string, alias string) (*Stats, error) {
	var stats Stats
	counts := []struct {
		query string
		arg   string
		dest  []any
	}{
		{"SELECT COUNT(*), COALESCE(SUM(CASE WHEN custom THEN 1 ELSE 0 END), 0) FROM sobjects WHERE org_id = ?", orgID, []any{&stats.Objects, &stats.CustomObjects}},
		{"SELECT COUNT(*), COALESCE(SUM(CASE WHEN custom THEN 1 ELSE 0 END), 0) FROM fields WHERE org_id = ?", orgID, []any{&stats.Fields, &stats.CustomFields}},
		{"SELECT COUNT(*) FROM flows WHERE org_id = ?", orgID, []any{&stats.Flows}},
		{"SELECT COUNT(*) FROM triggers WHERE org_id = ?", orgID, []any{&stats.Triggers}},
		{"SELECT COUNT(*) FROM field_relationships WHERE alias = ?", alias, []any{&stats.Relationships}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, s.dialect.rebind(c.query), c.arg).Scan(c.dest...); err != nil {
			return nil, err
		}
	}
	var lastSync sql.NullString
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind("SELECT MAX(completed_at) FROM sync_runs WHERE alias = ?"), alias).Scan(&lastSync); err != nil {
		return nil, err
	}
	if lastSync.Valid {
		stats.LastSync = parseTime(lastSync.String)
	}
	return &stats, nil
}

func itoa(limit int) string {
	if limit <= 0 {
		limit = 25
	}
	return strconv.Itoa(limit)
}
