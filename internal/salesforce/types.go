package salesforce

import "encoding/json"

// Record is a generic query result row.
type Record map[string]any

// GetString returns the named attribute as a string or "" when absent.
func (r Record) GetString(key string) string {
	if val, ok := r[key].(string); ok {
		return val
	}
	return ""
}

// GetBool returns the named attribute as a bool or false when absent.
func (r Record) GetBool(key string) bool {
	if val, ok := r[key].(bool); ok {
		return val
	}
	return false
}

// GetInt returns the named attribute as an int or 0 when absent. Numbers
// arrive from JSON as float64.
func (r Record) GetInt(key string) int {
	switch val := r[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	}
	return 0
}

// GetRecord returns a nested record attribute or nil when absent.
func (r Record) GetRecord(key string) Record {
	if val, ok := r[key].(map[string]any); ok {
		return Record(val)
	}
	return nil
}

// SObject is one entry from the global describe catalog. Raw carries the
// complete describe payload for storage.
type SObject struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	LabelPlural string `json:"labelPlural"`
	Custom      bool   `json:"custom"`
	KeyPrefix   string `json:"keyPrefix"`
	Queryable   bool   `json:"queryable"`
	Createable  bool   `json:"createable"`
	Updateable  bool   `json:"updateable"`
	Deletable   bool   `json:"deletable"`

	Raw json.RawMessage `json:"-"`
}

func (s *SObject) UnmarshalJSON(buf []byte) error {
	type alias SObject
	var a alias
	if err := json.Unmarshal(buf, &a); err != nil {
		return err
	}
	*s = SObject(a)
	s.Raw = append(json.RawMessage(nil), buf...)
	return nil
}

// Field is one field from a detailed object describe.
type Field struct {
	Name                     string   `json:"name"`
	Label                    string   `json:"label"`
	Type                     string   `json:"type"`
	Length                   int      `json:"length"`
	Custom                   bool     `json:"custom"`
	Nillable                 bool     `json:"nillable"`
	Unique                   bool     `json:"unique"`
	ExternalID               bool     `json:"externalId"`
	ReferenceTo              []string `json:"referenceTo"`
	RelationshipName         string   `json:"relationshipName"`
	CalculatedFormula        string   `json:"calculatedFormula"`
	DefaultValue             any      `json:"defaultValue"`
	InlineHelpText           string   `json:"inlineHelpText"`
	CascadeDelete            bool     `json:"cascadeDelete"`
	ReparentableMasterDetail bool     `json:"reparentableMasterDetail"`

	Raw json.RawMessage `json:"-"`
}

func (f *Field) UnmarshalJSON(buf []byte) error {
	type alias Field
	var a alias
	if err := json.Unmarshal(buf, &a); err != nil {
		return err
	}
	*f = Field(a)
	f.Raw = append(json.RawMessage(nil), buf...)
	return nil
}

// SObjectDetail is the detailed describe result for one object.
type SObjectDetail struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}
