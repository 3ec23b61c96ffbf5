package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/query"
	"github.com/asaidimu/go-ninja/core/schema"
	"github.com/asaidimu/go-ninja/core/view"
)

// Request is the body of a collection query. Where and OrderBy keep their wire
// form until the collection decodes them against its own field table.
type Request struct {
	League  string          `json:"league,omitempty"`
	Where   json.RawMessage `json:"where,omitempty"`
	OrderBy json.RawMessage `json:"orderby,omitempty"`
}

// Collection is a queryable collection as seen by the HTTP layer.
type Collection interface {
	Name() string
	Definition() *schema.SchemaDefinition
	// Query runs req and returns the matching records and their count.
	Query(ctx context.Context, req Request) (any, int, error)
}

// DefaultOrder is applied when a request carries no orderby or a null one. An
// explicit empty list keeps the snapshot order.
var DefaultOrder = query.OrderSpec{{Field: "name", Direction: query.Asc}}

type viewCollection[R any] struct {
	view *view.View[R]
}

// Bind exposes a view as a Collection.
func Bind[R any](v *view.View[R]) Collection {
	return viewCollection[R]{view: v}
}

func (c viewCollection[R]) Name() string { return c.view.Name() }

func (c viewCollection[R]) Definition() *schema.SchemaDefinition {
	return c.view.Model.Definition()
}

func (c viewCollection[R]) Query(ctx context.Context, req Request) (any, int, error) {
	q, err := decodeQuery(c.Definition(), req)
	if err != nil {
		return nil, 0, err
	}
	records, err := c.view.Query(ctx, req.League, q)
	if err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []R{}
	}
	return records, len(records), nil
}

// decodeQuery decodes both halves of the request and reports their issues
// together.
func decodeQuery(def *schema.SchemaDefinition, req Request) (query.Query, error) {
	var issues []schema.Issue
	collect := func(err error) error {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			issues = append(issues, verr.Issues...)
			return nil
		}
		return err
	}

	where, err := query.DecodeWhere(def, req.Where)
	if err := collect(err); err != nil {
		return query.Query{}, err
	}
	order, err := query.DecodeOrderSpec(req.OrderBy)
	if err := collect(err); err != nil {
		return query.Query{}, err
	}
	if len(issues) > 0 {
		return query.Query{}, core.NewValidationError(issues)
	}

	if orderAbsent(req.OrderBy) {
		order = DefaultOrder
	}
	return query.Query{Where: where, OrderBy: order}, nil
}

func orderAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
