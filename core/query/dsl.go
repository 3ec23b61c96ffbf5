// Package query defines the filter ("where") and ordering ("orderby") language
// evaluated in memory against snapshot records, together with the engine that
// compiles and runs it against any record type described by a schema.Model.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Logical combinator keys of a filter expression.
const (
	LogicalAnd = "and"
	LogicalOr  = "or"
	LogicalNot = "not"
)

// Where is a filter expression node. Field bindings are implicitly conjoined;
// And children successively narrow the result, Or children are unioned and Not
// children are subtracted, in that order.
type Where struct {
	Fields map[string]LeafFilter
	And    []*Where
	Or     []*Where
	Not    []*Where
}

// IsEmpty reports whether the expression has no bindings and no children, in
// which case it matches every record.
func (w *Where) IsEmpty() bool {
	return w == nil || (len(w.Fields) == 0 && len(w.And) == 0 && len(w.Or) == 0 && len(w.Not) == 0)
}

// Clone returns a copy of the expression tree. Leaf filters are shared, they
// are never mutated after construction.
func (w *Where) Clone() *Where {
	if w == nil {
		return nil
	}
	out := &Where{}
	if w.Fields != nil {
		out.Fields = make(map[string]LeafFilter, len(w.Fields))
		for k, v := range w.Fields {
			out.Fields[k] = v
		}
	}
	out.And = cloneAll(w.And)
	out.Or = cloneAll(w.Or)
	out.Not = cloneAll(w.Not)
	return out
}

func cloneAll(ws []*Where) []*Where {
	if ws == nil {
		return nil
	}
	out := make([]*Where, len(ws))
	for i, w := range ws {
		out[i] = w.Clone()
	}
	return out
}

// MarshalJSON renders the expression in its wire form: field bindings as
// top-level keys next to optional "and", "or" and "not" arrays.
func (w Where) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(w.Fields)+3)
	for name, leaf := range w.Fields {
		m[name] = leaf
	}
	if len(w.And) > 0 {
		m[LogicalAnd] = w.And
	}
	if len(w.Or) > 0 {
		m[LogicalOr] = w.Or
	}
	if len(w.Not) > 0 {
		m[LogicalNot] = w.Not
	}
	return json.Marshal(m)
}

// Direction specifies the direction for sorting.
type Direction string

// Supported sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" in any letter case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("invalid sort direction %q", s)
}

// OrderKey is one sort key.
type OrderKey struct {
	Field     string
	Direction Direction
}

// MarshalJSON renders the key as a single-entry object, e.g. {"name":"asc"}.
func (k OrderKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Direction{k.Field: k.Direction})
}

// UnmarshalJSON reads a single-entry object. The direction is lower-cased but
// not checked here; CompileOrder reports unknown directions as validation issues.
func (k *OrderKey) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("order key must be an object of field to direction: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("order key must name exactly one field, got %d", len(m))
	}
	for field, dir := range m {
		k.Field = field
		k.Direction = Direction(strings.ToLower(strings.TrimSpace(dir)))
	}
	return nil
}

// OrderSpec is a priority-ordered list of sort keys; the first key is primary.
type OrderSpec []OrderKey

// Query pairs an optional filter expression with an optional order specification.
type Query struct {
	Where   *Where    `json:"where,omitempty"`
	OrderBy OrderSpec `json:"orderby,omitempty"`
}
