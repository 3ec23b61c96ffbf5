package query

import (
	"errors"
	"slices"
	"testing"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sorted(t *testing.T, spec OrderSpec) []string {
	t.Helper()
	s, err := CompileOrder(lineModel, spec)
	require.NoError(t, err)
	return ids(s.Sort(sampleLines()))
}

func TestSorter_Sort(t *testing.T) {
	tests := []struct {
		name     string
		spec     OrderSpec
		expected []string
	}{
		{
			name:     "empty spec keeps input order",
			spec:     nil,
			expected: []string{"c1", "c2", "c3", "f1", "f2", "f3"},
		},
		{
			name:     "name ascending",
			spec:     OrderSpec{{Field: "name", Direction: Asc}},
			expected: []string{"c1", "c2", "c3", "f1", "f3", "f2"},
		},
		{
			name:     "chaos value descending keeps ties stable and NaN last",
			spec:     OrderSpec{{Field: "chaos_value", Direction: Desc}},
			expected: []string{"c2", "c3", "f3", "f1", "c1", "f2"},
		},
		{
			name:     "chaos value ascending puts NaN first",
			spec:     OrderSpec{{Field: "chaos_value", Direction: Asc}},
			expected: []string{"f2", "c1", "f1", "c3", "f3", "c2"},
		},
		{
			name:     "enum then number",
			spec:     OrderSpec{{Field: "kind", Direction: Asc}, {Field: "chaos_value", Direction: Desc}},
			expected: []string{"c2", "c3", "c1", "f3", "f1", "f2"},
		},
		{
			name:     "absent optionals first",
			spec:     OrderSpec{{Field: "level", Direction: Asc}},
			expected: []string{"c1", "c3", "f2", "f3", "c2", "f1"},
		},
		{
			name:     "equal keys keep input order",
			spec:     OrderSpec{{Field: "links", Direction: Asc}},
			expected: []string{"c1", "c2", "f1", "f2", "f3", "c3"},
		},
		{
			name:     "empty direction means ascending",
			spec:     OrderSpec{{Field: "links"}},
			expected: []string{"c1", "c2", "f1", "f2", "f3", "c3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sorted(t, tt.spec))
		})
	}
}

func TestSorter_DescendingIsReverseForDistinctKeys(t *testing.T) {
	asc := sorted(t, OrderSpec{{Field: "name", Direction: Asc}})
	desc := sorted(t, OrderSpec{{Field: "name", Direction: Desc}})
	slices.Reverse(desc)
	assert.Equal(t, asc, desc)
}

func TestSorter_SortDoesNotMutateInput(t *testing.T) {
	s, err := CompileOrder(lineModel, OrderSpec{{Field: "chaos_value", Direction: Desc}})
	require.NoError(t, err)

	input := sampleLines()
	out := s.Sort(input)
	assert.Equal(t, []string{"c1", "c2", "c3", "f1", "f2", "f3"}, ids(input))
	out[0].Name = "changed"
	assert.NotEqual(t, "changed", input[1].Name)
}

func TestSorter_Compare(t *testing.T) {
	s, err := CompileOrder(lineModel, OrderSpec{{Field: "chaos_value", Direction: Desc}, {Field: "name", Direction: Asc}})
	require.NoError(t, err)

	ls := sampleLines()
	assert.Negative(t, s.Compare(ls[1], ls[0]))
	assert.Positive(t, s.Compare(ls[0], ls[1]))
	assert.Negative(t, s.Compare(ls[2], ls[5]), "tie on chaos value falls through to name")
	assert.Zero(t, s.Compare(ls[2], ls[2]))
}

func TestCompileOrder_ValidationIssues(t *testing.T) {
	tests := []struct {
		name string
		spec OrderSpec
		code string
		path string
	}{
		{"unknown field", OrderSpec{{Field: "price", Direction: Asc}}, schema.IssueUnknownField, "[0]"},
		{"list field", OrderSpec{{Field: "name", Direction: Asc}, {Field: "mods", Direction: Asc}}, schema.IssueNotSortable, "[1]"},
		{"unsortable scalar", OrderSpec{{Field: "corrupted", Direction: Desc}}, schema.IssueNotSortable, "[0]"},
		{"bad direction", OrderSpec{{Field: "name", Direction: "up"}}, schema.IssueInvalidOrder, "[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileOrder(lineModel, tt.spec)
			require.True(t, errors.Is(err, core.ErrValidation))

			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Issues, 1)
			assert.Equal(t, tt.code, verr.Issues[0].Code)
			assert.Equal(t, tt.path, verr.Issues[0].Path)
		})
	}
}
