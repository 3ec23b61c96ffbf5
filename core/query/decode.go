package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/schema"
)

// DecodeWhere reads the wire form of a filter expression. Each non-logical key
// names a field; the schema's type family for that field selects which leaf
// filter the operators are decoded into, and operators outside that family are
// rejected. Problems are reported as a single *core.ValidationError, with
// paths rooted at "where" as Prepare reports them.
func DecodeWhere(def *schema.SchemaDefinition, data []byte) (*Where, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	v := schema.NewValidator(def)
	w := decodeWhere(v, def, "where", data)
	if err := core.NewValidationError(v.Issues()); err != nil {
		return nil, err
	}
	return w, nil
}

func decodeWhere(v *schema.Validator, def *schema.SchemaDefinition, path string, data json.RawMessage) *Where {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		v.Report(schema.IssueInvalidValue, fmt.Sprintf("Expected a filter object: %v", err), path)
		return nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := &Where{}
	for _, key := range keys {
		switch key {
		case LogicalAnd, LogicalOr, LogicalNot:
			children := decodeChildren(v, def, path, key, raw[key])
			switch key {
			case LogicalAnd:
				w.And = children
			case LogicalOr:
				w.Or = children
			case LogicalNot:
				w.Not = children
			}
		default:
			fieldPath := v.BuildPath(path, key)
			field := def.FindField(key)
			if field == nil {
				v.Report(schema.IssueUnknownField, fmt.Sprintf("Field '%s' is not defined on %s", key, def.Name), fieldPath)
				continue
			}
			leaf, ok := NewLeafFilter(field.Type)
			if !ok {
				v.Report(schema.IssueTypeMismatch, fmt.Sprintf("Field '%s' has no filter for type %s", key, field.Type), fieldPath)
				continue
			}
			dec := json.NewDecoder(bytes.NewReader(raw[key]))
			dec.DisallowUnknownFields()
			if err := dec.Decode(leaf); err != nil {
				v.Report(schema.IssueInvalidOperator, fmt.Sprintf("Invalid %s filter: %v", field.Type, err), fieldPath)
				continue
			}
			if w.Fields == nil {
				w.Fields = make(map[string]LeafFilter)
			}
			w.Fields[key] = leaf
		}
	}
	return w
}

func decodeChildren(v *schema.Validator, def *schema.SchemaDefinition, path, group string, data json.RawMessage) []*Where {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		v.Report(schema.IssueInvalidValue, fmt.Sprintf("'%s' must be an array of filter objects", group), v.BuildPath(path, group))
		return nil
	}
	out := make([]*Where, 0, len(items))
	for i, item := range items {
		if child := decodeWhere(v, def, v.BuildIndexPath(path, group, i), item); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// DecodeOrderSpec reads the wire form of an order specification, a JSON array
// of single-entry objects such as [{"chaos_value":"desc"},{"name":"asc"}].
func DecodeOrderSpec(data []byte) (OrderSpec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var spec OrderSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, core.NewValidationError([]schema.Issue{{
			Code:     schema.IssueInvalidValue,
			Message:  err.Error(),
			Path:     "orderby",
			Severity: "error",
		}})
	}
	return spec, nil
}
