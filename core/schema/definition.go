// Package schema describes the queryable shape of a record: which fields exist,
// which scalar type family each belongs to, whether a field holds one value, an
// optional value or a list of values, and whether it may be filtered or sorted on.
// The table is built once at startup and drives operator selection, JSON
// decoding of filter input and validation.
package schema

import (
	"fmt"
	"sort"
)

// FieldType is the scalar type family of a field. It fixes the operator set a
// leaf filter on that field may use.
type FieldType string

const (
	FieldTypeString  FieldType = "string"  // Text data
	FieldTypeInteger FieldType = "integer" // Whole numbers, normalised to int64
	FieldTypeNumber  FieldType = "number"  // Floating point, normalised to float64
	FieldTypeBoolean FieldType = "boolean" // True/false values
	FieldTypeEnum    FieldType = "enum"    // One out of a set of pre-defined tags
)

// Valid reports whether t is one of the supported type families.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean, FieldTypeEnum:
		return true
	}
	return false
}

// Shape describes how many values a record holds for a field.
type Shape string

const (
	ShapeScalar   Shape = "scalar"   // Exactly one value
	ShapeOptional Shape = "optional" // Zero or one value
	ShapeList     Shape = "list"     // Zero or more values
)

// FieldDefinition defines a single queryable field of a record.
type FieldDefinition struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	// Shape defaults to ShapeScalar when empty.
	Shape Shape `json:"shape,omitempty"`
	// Filterable allows the field to be bound in a filter expression.
	Filterable bool `json:"filterable"`
	// Sortable allows the field to be used as an order key. List fields are
	// never sortable.
	Sortable bool `json:"sortable"`
	// Values lists the allowed tags of an enum field.
	Values      []string `json:"values,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// ShapeOrDefault returns the field shape, treating an empty shape as scalar.
func (f *FieldDefinition) ShapeOrDefault() Shape {
	if f.Shape == "" {
		return ShapeScalar
	}
	return f.Shape
}

// AllowsValue reports whether tag is one of the declared enum values. Fields
// with no declared values accept any tag.
func (f *FieldDefinition) AllowsValue(tag string) bool {
	if len(f.Values) == 0 {
		return true
	}
	for _, v := range f.Values {
		if v == tag {
			return true
		}
	}
	return false
}

func (f *FieldDefinition) check() error {
	if f.Name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("field %q has unsupported type %q", f.Name, f.Type)
	}
	switch f.ShapeOrDefault() {
	case ShapeScalar, ShapeOptional:
	case ShapeList:
		if f.Sortable {
			return fmt.Errorf("field %q is a list and cannot be sortable", f.Name)
		}
	default:
		return fmt.Errorf("field %q has unsupported shape %q", f.Name, f.Shape)
	}
	if len(f.Values) > 0 && f.Type != FieldTypeEnum {
		return fmt.Errorf("field %q declares enum values but has type %q", f.Name, f.Type)
	}
	return nil
}

// SchemaDefinition is the field table of one record shape.
type SchemaDefinition struct {
	Name        string                      `json:"name"`
	Description *string                     `json:"description,omitempty"`
	Fields      map[string]*FieldDefinition `json:"fields"`
}

// FieldNames returns the defined field names in lexical order.
func (s *SchemaDefinition) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Issue is a single problem found while validating query input against a schema.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Severity string `json:"severity,omitempty"` // e.g., "error", "warning"
}

// Issue codes reported by the Validator.
const (
	IssueUnknownField    = "UNKNOWN_FIELD"
	IssueNotFilterable   = "FIELD_NOT_FILTERABLE"
	IssueNotSortable     = "FIELD_NOT_SORTABLE"
	IssueTypeMismatch    = "TYPE_MISMATCH"
	IssueInvalidRegex    = "INVALID_REGEX"
	IssueInvalidEnum     = "INVALID_ENUM_VALUE"
	IssueInvalidOperator = "INVALID_OPERATOR"
	IssueInvalidValue    = "INVALID_VALUE"
	IssueInvalidOrder    = "INVALID_DIRECTION"
	IssueUnknownLeague   = "UNKNOWN_LEAGUE"
)
