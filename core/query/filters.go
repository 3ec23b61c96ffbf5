package query

import (
	"slices"
	"strings"

	"github.com/asaidimu/go-ninja/core/schema"
)

// StringFilter is the operator set of string fields. Operators prefixed with
// "i" compare case-insensitively by lower-casing both sides.
type StringFilter struct {
	Eq          *string  `json:"_eq,omitempty"`
	IEq         *string  `json:"_ieq,omitempty"`
	Ne          *string  `json:"_ne,omitempty"`
	INe         *string  `json:"_ine,omitempty"`
	Contains    *string  `json:"_contains,omitempty"`
	IContains   *string  `json:"_icontains,omitempty"`
	StartsWith  *string  `json:"_startswith,omitempty"`
	IStartsWith *string  `json:"_istartswith,omitempty"`
	EndsWith    *string  `json:"_endswith,omitempty"`
	IEndsWith   *string  `json:"_iendswith,omitempty"`
	Regex       *string  `json:"_regex,omitempty"`
	IRegex      *string  `json:"_iregex,omitempty"`
	In          []string `json:"_in,omitempty"`
	Nin         []string `json:"_nin,omitempty"`
}

// Type implements LeafFilter.
func (f *StringFilter) Type() schema.FieldType { return schema.FieldTypeString }

func (f *StringFilter) isNil() bool { return f == nil }

type stringCheck func(s, lower string) bool

func (f *StringFilter) compile(v *schema.Validator, path string, _ *schema.FieldDefinition) predicate {
	var checks []stringCheck
	add := func(c stringCheck) { checks = append(checks, c) }

	if f.Eq != nil {
		want := *f.Eq
		add(func(s, _ string) bool { return s == want })
	}
	if f.IEq != nil {
		want := strings.ToLower(*f.IEq)
		add(func(_, ls string) bool { return ls == want })
	}
	if f.Ne != nil {
		want := *f.Ne
		add(func(s, _ string) bool { return s != want })
	}
	if f.INe != nil {
		want := strings.ToLower(*f.INe)
		add(func(_, ls string) bool { return ls != want })
	}
	if f.Contains != nil {
		want := *f.Contains
		add(func(s, _ string) bool { return strings.Contains(s, want) })
	}
	if f.IContains != nil {
		want := strings.ToLower(*f.IContains)
		add(func(_, ls string) bool { return strings.Contains(ls, want) })
	}
	if f.StartsWith != nil {
		want := *f.StartsWith
		add(func(s, _ string) bool { return strings.HasPrefix(s, want) })
	}
	if f.IStartsWith != nil {
		want := strings.ToLower(*f.IStartsWith)
		add(func(_, ls string) bool { return strings.HasPrefix(ls, want) })
	}
	if f.EndsWith != nil {
		want := *f.EndsWith
		add(func(s, _ string) bool { return strings.HasSuffix(s, want) })
	}
	if f.IEndsWith != nil {
		want := strings.ToLower(*f.IEndsWith)
		add(func(_, ls string) bool { return strings.HasSuffix(ls, want) })
	}
	if f.Regex != nil {
		if re := v.CompileRegex(v.BuildPath(path, "_regex"), *f.Regex, false); re != nil {
			add(func(s, _ string) bool { return re.MatchString(s) })
		}
	}
	if f.IRegex != nil {
		if re := v.CompileRegex(v.BuildPath(path, "_iregex"), *f.IRegex, true); re != nil {
			add(func(s, _ string) bool { return re.MatchString(s) })
		}
	}
	if f.In != nil {
		set := slices.Clone(f.In)
		add(func(s, _ string) bool { return slices.Contains(set, s) })
	}
	if f.Nin != nil {
		set := slices.Clone(f.Nin)
		add(func(s, _ string) bool { return !slices.Contains(set, s) })
	}

	return func(item any) bool {
		s, ok := item.(string)
		if !ok {
			return false
		}
		lower := strings.ToLower(s)
		for _, check := range checks {
			if !check(s, lower) {
				return false
			}
		}
		return true
	}
}

// IntFilter is the operator set of integer fields.
type IntFilter struct {
	Eq  *int64  `json:"_eq,omitempty"`
	Ne  *int64  `json:"_ne,omitempty"`
	Gt  *int64  `json:"_gt,omitempty"`
	Gte *int64  `json:"_gte,omitempty"`
	Lt  *int64  `json:"_lt,omitempty"`
	Lte *int64  `json:"_lte,omitempty"`
	In  []int64 `json:"_in,omitempty"`
	Nin []int64 `json:"_nin,omitempty"`
}

// Type implements LeafFilter.
func (f *IntFilter) Type() schema.FieldType { return schema.FieldTypeInteger }

func (f *IntFilter) isNil() bool { return f == nil }

func (f *IntFilter) compile(_ *schema.Validator, _ string, _ *schema.FieldDefinition) predicate {
	checks := numericChecks(f.Eq, f.Ne, f.Gt, f.Gte, f.Lt, f.Lte, f.In, f.Nin)
	return func(item any) bool {
		n, ok := item.(int64)
		if !ok {
			return false
		}
		return all(checks, n)
	}
}

// FloatFilter is the operator set of number fields. Equality is exact value
// equality. Comparisons follow IEEE-754, so a NaN item only satisfies _ne and
// _nin.
type FloatFilter struct {
	Eq  *float64  `json:"_eq,omitempty"`
	Ne  *float64  `json:"_ne,omitempty"`
	Gt  *float64  `json:"_gt,omitempty"`
	Gte *float64  `json:"_gte,omitempty"`
	Lt  *float64  `json:"_lt,omitempty"`
	Lte *float64  `json:"_lte,omitempty"`
	In  []float64 `json:"_in,omitempty"`
	Nin []float64 `json:"_nin,omitempty"`
}

// Type implements LeafFilter.
func (f *FloatFilter) Type() schema.FieldType { return schema.FieldTypeNumber }

func (f *FloatFilter) isNil() bool { return f == nil }

func (f *FloatFilter) compile(_ *schema.Validator, _ string, _ *schema.FieldDefinition) predicate {
	checks := numericChecks(f.Eq, f.Ne, f.Gt, f.Gte, f.Lt, f.Lte, f.In, f.Nin)
	return func(item any) bool {
		n, ok := ToFloat64(item)
		if !ok {
			return false
		}
		return all(checks, n)
	}
}

func numericChecks[T int64 | float64](eq, ne, gt, gte, lt, lte *T, in, nin []T) []func(T) bool {
	var checks []func(T) bool
	if eq != nil {
		want := *eq
		checks = append(checks, func(n T) bool { return n == want })
	}
	if ne != nil {
		want := *ne
		checks = append(checks, func(n T) bool { return n != want })
	}
	if gt != nil {
		want := *gt
		checks = append(checks, func(n T) bool { return n > want })
	}
	if gte != nil {
		want := *gte
		checks = append(checks, func(n T) bool { return n >= want })
	}
	if lt != nil {
		want := *lt
		checks = append(checks, func(n T) bool { return n < want })
	}
	if lte != nil {
		want := *lte
		checks = append(checks, func(n T) bool { return n <= want })
	}
	if in != nil {
		set := slices.Clone(in)
		checks = append(checks, func(n T) bool { return slices.Contains(set, n) })
	}
	if nin != nil {
		set := slices.Clone(nin)
		checks = append(checks, func(n T) bool { return !slices.Contains(set, n) })
	}
	return checks
}

func all[T any](checks []func(T) bool, v T) bool {
	for _, check := range checks {
		if !check(v) {
			return false
		}
	}
	return true
}

// BooleanFilter is the operator set of boolean fields.
type BooleanFilter struct {
	Eq *bool `json:"_eq,omitempty"`
	Ne *bool `json:"_ne,omitempty"`
}

// Type implements LeafFilter.
func (f *BooleanFilter) Type() schema.FieldType { return schema.FieldTypeBoolean }

func (f *BooleanFilter) isNil() bool { return f == nil }

func (f *BooleanFilter) compile(_ *schema.Validator, _ string, _ *schema.FieldDefinition) predicate {
	var checks []func(bool) bool
	if f.Eq != nil {
		want := *f.Eq
		checks = append(checks, func(b bool) bool { return b == want })
	}
	if f.Ne != nil {
		want := *f.Ne
		checks = append(checks, func(b bool) bool { return b != want })
	}
	return func(item any) bool {
		b, ok := item.(bool)
		if !ok {
			return false
		}
		return all(checks, b)
	}
}

// EnumFilter is the operator set of enumerated tag fields. Every operand must
// be one of the field's declared values.
type EnumFilter struct {
	Eq  *string  `json:"_eq,omitempty"`
	Ne  *string  `json:"_ne,omitempty"`
	In  []string `json:"_in,omitempty"`
	Nin []string `json:"_nin,omitempty"`
}

// Type implements LeafFilter.
func (f *EnumFilter) Type() schema.FieldType { return schema.FieldTypeEnum }

func (f *EnumFilter) isNil() bool { return f == nil }

func (f *EnumFilter) compile(v *schema.Validator, path string, field *schema.FieldDefinition) predicate {
	checkTag := func(op, tag string) {
		if field != nil {
			v.RequireEnumValue(v.BuildPath(path, op), field, tag)
		}
	}

	var checks []func(string) bool
	if f.Eq != nil {
		want := *f.Eq
		checkTag("_eq", want)
		checks = append(checks, func(s string) bool { return s == want })
	}
	if f.Ne != nil {
		want := *f.Ne
		checkTag("_ne", want)
		checks = append(checks, func(s string) bool { return s != want })
	}
	if f.In != nil {
		set := slices.Clone(f.In)
		for _, tag := range set {
			checkTag("_in", tag)
		}
		checks = append(checks, func(s string) bool { return slices.Contains(set, s) })
	}
	if f.Nin != nil {
		set := slices.Clone(f.Nin)
		for _, tag := range set {
			checkTag("_nin", tag)
		}
		checks = append(checks, func(s string) bool { return !slices.Contains(set, s) })
	}
	return func(item any) bool {
		s, ok := item.(string)
		if !ok {
			return false
		}
		return all(checks, s)
	}
}
