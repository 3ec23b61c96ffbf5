package schema

import (
	"fmt"
	"regexp"
)

// Validator checks query input against a schema definition and collects every
// problem it finds instead of stopping at the first one. A validator is used for
// a single compilation and is not safe for concurrent use.
type Validator struct {
	schema *SchemaDefinition
	issues []Issue
}

// NewValidator creates a new Validator for a given schema.
func NewValidator(schema *SchemaDefinition) *Validator {
	return &Validator{
		schema: schema,
		issues: make([]Issue, 0),
	}
}

// Issues returns the issues collected so far.
func (v *Validator) Issues() []Issue {
	return v.issues
}

// Valid reports whether no issues have been collected.
func (v *Validator) Valid() bool {
	return len(v.issues) == 0
}

// RequireFilterable checks that name is a filterable field whose type family
// is one of the accepted ones, and returns its definition.
func (v *Validator) RequireFilterable(path, name string, accepted ...FieldType) (*FieldDefinition, bool) {
	field, ok := v.lookup(path, name)
	if !ok {
		return nil, false
	}
	if !field.Filterable {
		v.addIssue(IssueNotFilterable, fmt.Sprintf("Field '%s' cannot be used in a filter", name), path)
		return nil, false
	}
	for _, t := range accepted {
		if field.Type == t {
			return field, true
		}
	}
	v.addIssue(IssueTypeMismatch, fmt.Sprintf("Field '%s' has type %s, which does not accept this filter", name, field.Type), path)
	return nil, false
}

// RequireSortable checks that name is a sortable field and returns its definition.
func (v *Validator) RequireSortable(path, name string) (*FieldDefinition, bool) {
	field, ok := v.lookup(path, name)
	if !ok {
		return nil, false
	}
	if !field.Sortable {
		v.addIssue(IssueNotSortable, fmt.Sprintf("Field '%s' cannot be used for ordering", name), path)
		return nil, false
	}
	return field, true
}

// RequireEnumValue checks that tag is declared on an enum field.
func (v *Validator) RequireEnumValue(path string, field *FieldDefinition, tag string) bool {
	if field.AllowsValue(tag) {
		return true
	}
	v.addIssue(IssueInvalidEnum, fmt.Sprintf("Value '%s' is not one of %v", tag, field.Values), path)
	return false
}

// CompileRegex compiles pattern, reporting a malformed expression as an issue.
func (v *Validator) CompileRegex(path, pattern string, ignoreCase bool) *regexp.Regexp {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		v.addIssue(IssueInvalidRegex, fmt.Sprintf("Invalid regular expression: %v", err), path)
		return nil
	}
	return re
}

// Report adds a free-form issue.
func (v *Validator) Report(code, message, path string) {
	v.addIssue(code, message, path)
}

// BuildPath joins a base path and a field or operator name.
func (v *Validator) BuildPath(basePath, fieldName string) string {
	return v.buildPath(basePath, fieldName)
}

// BuildIndexPath appends an index to a path, e.g. "or[2]".
func (v *Validator) BuildIndexPath(basePath, group string, index int) string {
	return v.buildPath(basePath, fmt.Sprintf("%s[%d]", group, index))
}

func (v *Validator) lookup(path, name string) (*FieldDefinition, bool) {
	field, ok := v.schema.Fields[name]
	if !ok {
		v.addIssue(IssueUnknownField, fmt.Sprintf("Field '%s' is not defined on %s", name, v.schema.Name), path)
		return nil, false
	}
	return field, true
}

// buildPath constructs a path string for nested fields.
func (v *Validator) buildPath(basePath, fieldName string) string {
	if basePath == "" {
		return fieldName
	}
	return basePath + "." + fieldName
}

// addIssue adds a new validation issue to the validator's list of issues.
func (v *Validator) addIssue(code, message, path string) {
	issue := Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: "error",
	}
	v.issues = append(v.issues, issue)
}
