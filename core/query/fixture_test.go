package query

import (
	"math"

	"github.com/asaidimu/go-ninja/core/schema"
)

type kind string

const (
	kindCurrency kind = "Currency"
	kindFragment kind = "Fragment"
)

type line struct {
	ID        string
	Name      string
	Chaos     float64
	Links     int64
	Level     *int64
	Mods      []string
	Kind      kind
	Corrupted bool
}

var lineModel = schema.MustModel("lines", func(l line) string { return l.ID },
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "name", Type: schema.FieldTypeString, Filterable: true, Sortable: true},
		Get:   func(l line) schema.Value { return schema.Scalar(l.Name) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "chaos_value", Type: schema.FieldTypeNumber, Filterable: true, Sortable: true},
		Get:   func(l line) schema.Value { return schema.Scalar(l.Chaos) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "links", Type: schema.FieldTypeInteger, Filterable: true, Sortable: true},
		Get:   func(l line) schema.Value { return schema.Scalar(l.Links) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "level", Type: schema.FieldTypeInteger, Shape: schema.ShapeOptional, Filterable: true, Sortable: true},
		Get:   func(l line) schema.Value { return schema.Optional(l.Level) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "mods", Type: schema.FieldTypeString, Shape: schema.ShapeList, Filterable: true},
		Get:   func(l line) schema.Value { return schema.List(l.Mods) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "kind", Type: schema.FieldTypeEnum, Filterable: true, Sortable: true, Values: []string{string(kindCurrency), string(kindFragment)}},
		Get:   func(l line) schema.Value { return schema.Scalar(l.Kind) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "corrupted", Type: schema.FieldTypeBoolean, Filterable: true},
		Get:   func(l line) schema.Value { return schema.Scalar(l.Corrupted) },
	},
	schema.Binding[line]{
		Field: schema.FieldDefinition{Name: "hidden", Type: schema.FieldTypeString},
		Get:   func(l line) schema.Value { return schema.Scalar(l.ID) },
	},
)

func level(n int64) *int64 { return &n }

func sampleLines() []line {
	return []line{
		{ID: "c1", Name: "Chaos Orb", Chaos: 1, Kind: kindCurrency, Mods: []string{}},
		{ID: "c2", Name: "Divine Orb", Chaos: 150, Kind: kindCurrency, Level: level(68)},
		{ID: "c3", Name: "Exalted Orb", Chaos: 12.5, Kind: kindCurrency, Links: 6, Corrupted: true, Mods: []string{"+1 to Level of Socketed Gems"}},
		{ID: "f1", Name: "Fragment of the Hydra", Chaos: 5, Kind: kindFragment, Level: level(70), Mods: []string{"Adds 10 to 20 Fire Damage", "10% increased Life"}},
		{ID: "f2", Name: "Sacrifice at Dusk", Chaos: math.NaN(), Kind: kindFragment},
		{ID: "f3", Name: "Mortal Grief", Chaos: 12.5, Kind: kindFragment, Links: 5},
	}
}

func ids(ls []line) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}

func where(fields map[string]LeafFilter) *Where {
	return &Where{Fields: fields}
}
