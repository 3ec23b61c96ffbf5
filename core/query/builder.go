package query

// QueryBuilder provides a fluent API for building Query values. Field
// conditions added with Where are bound at the top level of the filter
// expression; And, Or and Not attach nested expressions built with WhereBuilder.
type QueryBuilder struct {
	query Query
}

// NewQueryBuilder creates a new, empty query builder instance.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// Build returns a copy of the constructed Query. Later calls on the builder do
// not affect queries already built.
func (qb *QueryBuilder) Build() Query {
	return Query{
		Where:   qb.query.Where.Clone(),
		OrderBy: cloneOrder(qb.query.OrderBy),
	}
}

// Clone creates a deep copy of the builder so derived queries can be built
// without modifying the original.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	return &QueryBuilder{query: qb.Build()}
}

// Reset clears all configuration, returning the builder to its initial state.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	qb.query = Query{}
	return qb
}

func (qb *QueryBuilder) root() *Where {
	if qb.query.Where == nil {
		qb.query.Where = &Where{}
	}
	return qb.query.Where
}

// Where binds a leaf filter to a field of the top-level expression. Binding the
// same field twice replaces the earlier filter.
func (qb *QueryBuilder) Where(field string, filter LeafFilter) *QueryBuilder {
	w := qb.root()
	if w.Fields == nil {
		w.Fields = make(map[string]LeafFilter)
	}
	w.Fields[field] = filter
	return qb
}

// And appends conjunctive children to the top-level expression.
func (qb *QueryBuilder) And(children ...*Where) *QueryBuilder {
	w := qb.root()
	w.And = append(w.And, cloneAll(children)...)
	return qb
}

// Or appends disjunctive children to the top-level expression.
func (qb *QueryBuilder) Or(children ...*Where) *QueryBuilder {
	w := qb.root()
	w.Or = append(w.Or, cloneAll(children)...)
	return qb
}

// Not appends excluded children to the top-level expression.
func (qb *QueryBuilder) Not(children ...*Where) *QueryBuilder {
	w := qb.root()
	w.Not = append(w.Not, cloneAll(children)...)
	return qb
}

// OrderBy appends a sort key. Keys are applied in the order they are added.
func (qb *QueryBuilder) OrderBy(field string, direction Direction) *QueryBuilder {
	qb.query.OrderBy = append(qb.query.OrderBy, OrderKey{Field: field, Direction: direction})
	return qb
}

// OrderByAsc is a convenience method for an ascending sort key.
func (qb *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	return qb.OrderBy(field, Asc)
}

// OrderByDesc is a convenience method for a descending sort key.
func (qb *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	return qb.OrderBy(field, Desc)
}

func cloneOrder(spec OrderSpec) OrderSpec {
	if spec == nil {
		return nil
	}
	out := make(OrderSpec, len(spec))
	copy(out, spec)
	return out
}

// WhereBuilder builds a standalone filter expression, typically used as a child
// of an and, or or not group.
type WhereBuilder struct {
	where Where
}

// NewWhere creates an empty expression builder.
func NewWhere() *WhereBuilder {
	return &WhereBuilder{}
}

// Field binds a leaf filter to a field.
func (wb *WhereBuilder) Field(name string, filter LeafFilter) *WhereBuilder {
	if wb.where.Fields == nil {
		wb.where.Fields = make(map[string]LeafFilter)
	}
	wb.where.Fields[name] = filter
	return wb
}

// And appends conjunctive children.
func (wb *WhereBuilder) And(children ...*Where) *WhereBuilder {
	wb.where.And = append(wb.where.And, cloneAll(children)...)
	return wb
}

// Or appends disjunctive children.
func (wb *WhereBuilder) Or(children ...*Where) *WhereBuilder {
	wb.where.Or = append(wb.where.Or, cloneAll(children)...)
	return wb
}

// Not appends excluded children.
func (wb *WhereBuilder) Not(children ...*Where) *WhereBuilder {
	wb.where.Not = append(wb.where.Not, cloneAll(children)...)
	return wb
}

// Build returns a copy of the expression.
func (wb *WhereBuilder) Build() *Where {
	return wb.where.Clone()
}
