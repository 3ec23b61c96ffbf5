package query

import "github.com/asaidimu/go-ninja/core/schema"

// predicate tests one normalised field item.
type predicate func(any) bool

// LeafFilter is a single-field predicate bound to one scalar type family. The
// set of implementations is closed: StringFilter, IntFilter, FloatFilter,
// BooleanFilter and EnumFilter.
type LeafFilter interface {
	// Type returns the field type family the filter can be bound to.
	Type() schema.FieldType

	// compile validates operator values and returns the predicate. Problems are
	// reported on v under path.
	compile(v *schema.Validator, path string, field *schema.FieldDefinition) predicate

	// isNil reports a typed nil filter, which binds no constraint.
	isNil() bool
}

// NewLeafFilter returns an empty leaf filter for a type family, used when
// decoding filter input whose shape is only known from the schema.
func NewLeafFilter(t schema.FieldType) (LeafFilter, bool) {
	switch t {
	case schema.FieldTypeString:
		return &StringFilter{}, true
	case schema.FieldTypeInteger:
		return &IntFilter{}, true
	case schema.FieldTypeNumber:
		return &FloatFilter{}, true
	case schema.FieldTypeBoolean:
		return &BooleanFilter{}, true
	case schema.FieldTypeEnum:
		return &EnumFilter{}, true
	}
	return nil, false
}
