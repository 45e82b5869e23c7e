package flowparser

import (
	"encoding/xml"
	"fmt"
	"regexp"
)

// Element types emitted in field references.
const (
	ElementRecordLookup = "recordLookup"
	ElementRecordCreate = "recordCreate"
	ElementRecordUpdate = "recordUpdate"
	ElementRecordDelete = "recordDelete"
	ElementAssignment   = "assignment"
	ElementDecision     = "decision"
)

// statusActive is the platform's sentinel for an active flow version.
const statusActive = "Active"

// fieldPattern matches a textual Object.Field reference.
var fieldPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)$`)

// FieldReference is one occurrence of an object field being read or written
// by a flow element.
type FieldReference struct {
	ObjectName   string
	FieldName    string
	ElementName  string
	ElementType  string
	IsInput      bool
	IsOutput     bool
	VariableName string
}

// Metadata is the flow-level metadata extracted from the document. Absent
// elements leave the pointer nil rather than defaulting to an empty string.
type Metadata struct {
	ProcessType   *string
	TriggerType   *string
	TriggerObject *string
	Status        *string
	Description   *string
	IsActive      bool
}

// ElementCounts tallies the automation elements found in the document.
type ElementCounts struct {
	RecordLookups int
	RecordCreates int
	RecordUpdates int
	RecordDeletes int
	Assignments   int
	Decisions     int
	Loops         int
	Screens       int
	Subflows      int
	Total         int
}

// Result is the complete output of parsing one flow document. Parsing never
// panics; a malformed document yields a Result with Err set and empty
// collections.
type Result struct {
	Metadata        Metadata
	FieldReferences []FieldReference
	ElementCounts   ElementCounts
	Err             error
}

type flowStart struct {
	TriggerType *string `xml:"triggerType"`
	Object      *string `xml:"object"`
}

type flowFilter struct {
	Field string `xml:"field"`
}

type flowInputAssignment struct {
	Field string `xml:"field"`
}

type flowOutputAssignment struct {
	Field             string `xml:"field"`
	AssignToReference string `xml:"assignToReference"`
}

type flowRecordOp struct {
	Name              string                 `xml:"name"`
	Object            string                 `xml:"object"`
	Filters           []flowFilter           `xml:"filters"`
	InputAssignments  []flowInputAssignment  `xml:"inputAssignments"`
	OutputAssignments []flowOutputAssignment `xml:"outputAssignments"`
}

type flowValue struct {
	ElementReferences []string `xml:"elementReference"`
}

type flowAssignmentItem struct {
	AssignToReference string    `xml:"assignToReference"`
	Value             flowValue `xml:"value"`
}

type flowAssignment struct {
	Name  string               `xml:"name"`
	Items []flowAssignmentItem `xml:"assignmentItems"`
}

type flowCondition struct {
	LeftValueReference string    `xml:"leftValueReference"`
	RightValue         flowValue `xml:"rightValue"`
}

type flowRule struct {
	Conditions []flowCondition `xml:"conditions"`
}

type flowDecision struct {
	Name  string     `xml:"name"`
	Rules []flowRule `xml:"rules"`
}

type flowDocument struct {
	XMLName       xml.Name         `xml:"Flow"`
	ProcessType   *string          `xml:"processType"`
	Status        *string          `xml:"status"`
	Description   *string          `xml:"description"`
	Start         *flowStart       `xml:"start"`
	RecordLookups []flowRecordOp   `xml:"recordLookups"`
	RecordCreates []flowRecordOp   `xml:"recordCreates"`
	RecordUpdates []flowRecordOp   `xml:"recordUpdates"`
	RecordDeletes []flowRecordOp   `xml:"recordDeletes"`
	Assignments   []flowAssignment `xml:"assignments"`
	Decisions     []flowDecision   `xml:"decisions"`
	Loops         []struct{}       `xml:"loops"`
	Screens       []struct{}       `xml:"screens"`
	Subflows      []struct{}       `xml:"subflows"`
}

// Parse extracts flow metadata, field references and element counts from a
// flow definition XML document. It is a pure function over the document text.
func Parse(xmlText string) Result {
	var doc flowDocument
	if err := xml.Unmarshal([]byte(xmlText), &doc); err != nil {
		return Result{
			Err:             fmt.Errorf("xml parsing error: %w", err),
			FieldReferences: []FieldReference{},
		}
	}
	return Result{
		Metadata:        extractMetadata(&doc),
		FieldReferences: extractFieldReferences(&doc),
		ElementCounts:   countElements(&doc),
	}
}

func extractMetadata(doc *flowDocument) Metadata {
	md := Metadata{
		ProcessType: doc.ProcessType,
		Status:      doc.Status,
		Description: doc.Description,
	}
	if doc.Start != nil {
		md.TriggerType = doc.Start.TriggerType
		md.TriggerObject = doc.Start.Object
	}
	if doc.Status != nil {
		md.IsActive = *doc.Status == statusActive
	}
	return md
}

func extractFieldReferences(doc *flowDocument) []FieldReference {
	refs := make([]FieldReference, 0)
	families := []struct {
		ops         []flowRecordOp
		elementType string
	}{
		{doc.RecordLookups, ElementRecordLookup},
		{doc.RecordCreates, ElementRecordCreate},
		{doc.RecordUpdates, ElementRecordUpdate},
		{doc.RecordDeletes, ElementRecordDelete},
	}
	for _, family := range families {
		for _, op := range family.ops {
			refs = append(refs, parseRecordOp(op, family.elementType)...)
		}
	}
	for _, assignment := range doc.Assignments {
		refs = append(refs, parseAssignment(assignment)...)
	}
	for _, decision := range doc.Decisions {
		refs = append(refs, parseDecision(decision)...)
	}
	return refs
}

func elementName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

// parseRecordOp walks one record operation element. Filter criteria read the
// field (input); create/update input assignments write it (output); a
// lookup's output assignment reads the field back into a variable (input,
// carrying the bound variable name).
func parseRecordOp(op flowRecordOp, elementType string) []FieldReference {
	refs := make([]FieldReference, 0)
	if op.Object == "" {
		return refs
	}
	name := elementName(op.Name)
	for _, filter := range op.Filters {
		if filter.Field == "" {
			continue
		}
		refs = append(refs, FieldReference{
			ObjectName:  op.Object,
			FieldName:   filter.Field,
			ElementName: name,
			ElementType: elementType,
			IsInput:     true,
		})
	}
	for _, assign := range op.InputAssignments {
		if assign.Field == "" {
			continue
		}
		refs = append(refs, FieldReference{
			ObjectName:  op.Object,
			FieldName:   assign.Field,
			ElementName: name,
			ElementType: elementType,
			IsOutput:    true,
		})
	}
	for _, assign := range op.OutputAssignments {
		if assign.Field == "" {
			continue
		}
		refs = append(refs, FieldReference{
			ObjectName:   op.Object,
			FieldName:    assign.Field,
			ElementName:  name,
			ElementType:  elementType,
			IsInput:      true,
			VariableName: assign.AssignToReference,
		})
	}
	return refs
}

func parseAssignment(assignment flowAssignment) []FieldReference {
	refs := make([]FieldReference, 0)
	name := elementName(assignment.Name)
	for _, item := range assignment.Items {
		if m := fieldPattern.FindStringSubmatch(item.AssignToReference); m != nil {
			refs = append(refs, FieldReference{
				ObjectName:  m[1],
				FieldName:   m[2],
				ElementName: name,
				ElementType: ElementAssignment,
				IsOutput:    true,
			})
		}
		for _, ref := range item.Value.ElementReferences {
			if m := fieldPattern.FindStringSubmatch(ref); m != nil {
				refs = append(refs, FieldReference{
					ObjectName:  m[1],
					FieldName:   m[2],
					ElementName: name,
					ElementType: ElementAssignment,
					IsInput:     true,
				})
			}
		}
	}
	return refs
}

// parseDecision records condition references. Conditions only ever read.
func parseDecision(decision flowDecision) []FieldReference {
	refs := make([]FieldReference, 0)
	name := elementName(decision.Name)
	for _, rule := range decision.Rules {
		for _, condition := range rule.Conditions {
			if m := fieldPattern.FindStringSubmatch(condition.LeftValueReference); m != nil {
				refs = append(refs, FieldReference{
					ObjectName:  m[1],
					FieldName:   m[2],
					ElementName: name,
					ElementType: ElementDecision,
					IsInput:     true,
				})
			}
			for _, ref := range condition.RightValue.ElementReferences {
				if m := fieldPattern.FindStringSubmatch(ref); m != nil {
					refs = append(refs, FieldReference{
						ObjectName:  m[1],
						FieldName:   m[2],
						ElementName: name,
						ElementType: ElementDecision,
						IsInput:     true,
					})
				}
			}
		}
	}
	return refs
}

func countElements(doc *flowDocument) ElementCounts {
	counts := ElementCounts{
		RecordLookups: len(doc.RecordLookups),
		RecordCreates: len(doc.RecordCreates),
		RecordUpdates: len(doc.RecordUpdates),
		RecordDeletes: len(doc.RecordDeletes),
		Assignments:   len(doc.Assignments),
		Decisions:     len(doc.Decisions),
		Loops:         len(doc.Loops),
		Screens:       len(doc.Screens),
		Subflows:      len(doc.Subflows),
	}
	counts.Total = counts.RecordLookups + counts.RecordCreates + counts.RecordUpdates +
		counts.RecordDeletes + counts.Assignments + counts.Decisions +
		counts.Loops + counts.Screens + counts.Subflows
	return counts
}
