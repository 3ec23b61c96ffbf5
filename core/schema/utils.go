package schema

// FindField returns the definition of name, or nil when the schema does not define it.
func (s *SchemaDefinition) FindField(name string) *FieldDefinition {
	if s == nil {
		return nil
	}
	return s.Fields[name]
}
