package query

import (
	"sort"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/schema"
)

// binding is one compiled field predicate of a node.
type binding[R any] struct {
	field string
	get   func(R) schema.Value
	pred  predicate
}

// node is the compiled, owned form of a Where expression.
type node[R any] struct {
	bindings []binding[R]
	and      []*node[R]
	or       []*node[R]
	not      []*node[R]
}

// Filter is a compiled filter expression for records of type R. It is
// immutable and safe for concurrent use.
type Filter[R any] struct {
	model *schema.Model[R]
	root  *node[R]
}

// Compile validates where against the model and prepares it for evaluation.
// Unknown or non-filterable fields, leaf filters of the wrong type family,
// undeclared enum tags and malformed regular expressions are all reported in a
// single *core.ValidationError. A nil expression compiles to the identity filter.
func Compile[R any](model *schema.Model[R], where *Where) (*Filter[R], error) {
	v := schema.NewValidator(model.Definition())
	root := compileNode(v, model, "", where)
	if err := core.NewValidationError(v.Issues()); err != nil {
		return nil, err
	}
	return &Filter[R]{model: model, root: root}, nil
}

func compileNode[R any](v *schema.Validator, model *schema.Model[R], path string, where *Where) *node[R] {
	if where.IsEmpty() {
		return nil
	}

	n := &node[R]{}
	names := make([]string, 0, len(where.Fields))
	for name := range where.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		leaf := where.Fields[name]
		fieldPath := v.BuildPath(path, name)
		if leaf == nil || leaf.isNil() {
			continue
		}
		field, ok := v.RequireFilterable(fieldPath, name, leaf.Type())
		if !ok {
			continue
		}
		get, _ := model.Accessor(name)
		pred := leaf.compile(v, fieldPath, field)
		n.bindings = append(n.bindings, binding[R]{field: name, get: get, pred: pred})
	}

	n.and = compileChildren(v, model, path, LogicalAnd, where.And)
	n.or = compileChildren(v, model, path, LogicalOr, where.Or)
	n.not = compileChildren(v, model, path, LogicalNot, where.Not)
	return n
}

func compileChildren[R any](v *schema.Validator, model *schema.Model[R], path, group string, children []*Where) []*node[R] {
	if len(children) == 0 {
		return nil
	}
	out := make([]*node[R], len(children))
	for i, child := range children {
		out[i] = compileNode(v, model, v.BuildIndexPath(path, group, i), child)
	}
	return out
}

// Evaluate returns the records selected by the expression. It never mutates
// the input; the identity filter returns the input slice unchanged.
func (f *Filter[R]) Evaluate(records []R) []R {
	if f == nil {
		return records
	}
	return f.evaluate(f.root, records)
}

func (f *Filter[R]) evaluate(n *node[R], records []R) []R {
	// An empty child expression is the identity filter.
	if n == nil {
		return records
	}

	working := records
	if len(n.bindings) > 0 {
		working = make([]R, 0, len(records))
		for _, r := range records {
			if n.matches(r) {
				working = append(working, r)
			}
		}
	}

	for _, child := range n.and {
		working = f.evaluate(child, working)
	}

	if len(n.or) > 0 {
		seen := make(map[string]struct{})
		union := make([]R, 0, len(working))
		for _, child := range n.or {
			for _, r := range f.evaluate(child, working) {
				key := f.model.Key(r)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				union = append(union, r)
			}
		}
		working = union
	}

	if len(n.not) > 0 {
		excluded := make(map[string]struct{})
		for _, child := range n.not {
			for _, r := range f.evaluate(child, working) {
				excluded[f.model.Key(r)] = struct{}{}
			}
		}
		kept := make([]R, 0, len(working))
		for _, r := range working {
			if _, drop := excluded[f.model.Key(r)]; !drop {
				kept = append(kept, r)
			}
		}
		working = kept
	}

	return working
}

func (n *node[R]) matches(r R) bool {
	for _, b := range n.bindings {
		if !b.get(r).Match(b.pred) {
			return false
		}
	}
	return true
}

// Plan is a compiled Query: a filter followed by a stable multi-key sort.
type Plan[R any] struct {
	filter *Filter[R]
	sorter *Sorter[R]
}

// Prepare compiles both halves of q, merging their issues into one
// *core.ValidationError.
func Prepare[R any](model *schema.Model[R], q Query) (*Plan[R], error) {
	v := schema.NewValidator(model.Definition())
	root := compileNode(v, model, "where", q.Where)
	keys := compileKeys(v, model, "orderby", q.OrderBy)
	if err := core.NewValidationError(v.Issues()); err != nil {
		return nil, err
	}
	return &Plan[R]{
		filter: &Filter[R]{model: model, root: root},
		sorter: &Sorter[R]{keys: keys},
	}, nil
}

// Run filters and then orders records. The result never aliases the input.
func (p *Plan[R]) Run(records []R) []R {
	return p.sorter.Sort(p.filter.Evaluate(records))
}
