package query

import (
	"fmt"
	"slices"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/schema"
)

type sortKey[R any] struct {
	field string
	get   func(R) schema.Value
	desc  bool
}

// Sorter is a compiled order specification. It is immutable and safe for
// concurrent use.
type Sorter[R any] struct {
	keys []sortKey[R]
}

// CompileOrder validates spec against the model. Unknown or unsortable fields
// and directions other than asc/desc are reported as a *core.ValidationError.
func CompileOrder[R any](model *schema.Model[R], spec OrderSpec) (*Sorter[R], error) {
	v := schema.NewValidator(model.Definition())
	keys := compileKeys(v, model, "", spec)
	if err := core.NewValidationError(v.Issues()); err != nil {
		return nil, err
	}
	return &Sorter[R]{keys: keys}, nil
}

func compileKeys[R any](v *schema.Validator, model *schema.Model[R], path string, spec OrderSpec) []sortKey[R] {
	keys := make([]sortKey[R], 0, len(spec))
	for i, key := range spec {
		keyPath := fmt.Sprintf("%s[%d]", path, i)
		if _, ok := v.RequireSortable(keyPath, key.Field); !ok {
			continue
		}
		var desc bool
		switch key.Direction {
		case Asc, "":
		case Desc:
			desc = true
		default:
			v.Report(schema.IssueInvalidOrder, fmt.Sprintf("Direction '%s' must be asc or desc", key.Direction), keyPath)
			continue
		}
		get, _ := model.Accessor(key.Field)
		keys = append(keys, sortKey[R]{field: key.Field, get: get, desc: desc})
	}
	return keys
}

// Compare orders a and b by each key in priority order; the first key that
// does not compare equal decides.
func (s *Sorter[R]) Compare(a, b R) int {
	for _, k := range s.keys {
		c := schema.Compare(k.get(a), k.get(b))
		if c == 0 {
			continue
		}
		if k.desc {
			return -c
		}
		return c
	}
	return 0
}

// Sort returns a stably sorted copy of records. Records that compare equal on
// every key keep their input order; an empty specification returns a copy in
// input order.
func (s *Sorter[R]) Sort(records []R) []R {
	out := slices.Clone(records)
	if s == nil || len(s.keys) == 0 {
		return out
	}
	slices.SortStableFunc(out, s.Compare)
	return out
}
