package schema

import "fmt"

// Binding attaches an accessor to a field definition.
type Binding[R any] struct {
	Field FieldDefinition
	Get   func(R) Value
}

// Model is the queryable schema of record type R: its field table, the
// accessor for each field and the identity key used for deduplication.
type Model[R any] struct {
	def     *SchemaDefinition
	key     func(R) string
	getters map[string]func(R) Value
}

// NewModel builds a model from a set of field bindings. It fails on duplicate
// field names, unsupported type families or shapes, sortable list fields and
// missing accessors.
func NewModel[R any](name string, key func(R) string, bindings ...Binding[R]) (*Model[R], error) {
	if name == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if key == nil {
		return nil, fmt.Errorf("model %q requires an identity key function", name)
	}

	m := &Model[R]{
		def:     &SchemaDefinition{Name: name, Fields: make(map[string]*FieldDefinition, len(bindings))},
		key:     key,
		getters: make(map[string]func(R) Value, len(bindings)),
	}
	for _, b := range bindings {
		field := b.Field
		if err := field.check(); err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		if b.Get == nil {
			return nil, fmt.Errorf("model %q: field %q has no accessor", name, field.Name)
		}
		if _, exists := m.def.Fields[field.Name]; exists {
			return nil, fmt.Errorf("model %q: duplicate field %q", name, field.Name)
		}
		if field.Shape == "" {
			field.Shape = ShapeScalar
		}
		m.def.Fields[field.Name] = &field
		m.getters[field.Name] = b.Get
	}
	return m, nil
}

// MustModel is like NewModel but panics on error. It is meant for package-level
// model tables that are fixed at compile time.
func MustModel[R any](name string, key func(R) string, bindings ...Binding[R]) *Model[R] {
	m, err := NewModel(name, key, bindings...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the model name.
func (m *Model[R]) Name() string { return m.def.Name }

// Definition returns the field table.
func (m *Model[R]) Definition() *SchemaDefinition { return m.def }

// Key returns the identity key of a record.
func (m *Model[R]) Key(r R) string { return m.key(r) }

// Field looks up a field definition by name.
func (m *Model[R]) Field(name string) (*FieldDefinition, bool) {
	f, ok := m.def.Fields[name]
	return f, ok
}

// Accessor returns the value accessor of a field.
func (m *Model[R]) Accessor(name string) (func(R) Value, bool) {
	g, ok := m.getters[name]
	return g, ok
}
