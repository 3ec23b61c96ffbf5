package ninja

import (
	"context"
	"strconv"
	"strings"

	"github.com/asaidimu/go-ninja/core/aggregate"
	"github.com/asaidimu/go-ninja/core/schema"
	"go.uber.org/zap"
)

// ItemCollection names the item snapshot.
const ItemCollection = "item"

// ItemEndpoint is an itemoverview partition.
type ItemEndpoint string

const (
	// General
	ItemEndpointTattoo         ItemEndpoint = "Tattoo"
	ItemEndpointOmen           ItemEndpoint = "Omen"
	ItemEndpointDivinationCard ItemEndpoint = "DivinationCard"
	ItemEndpointArtifact       ItemEndpoint = "Artifact"
	ItemEndpointOil            ItemEndpoint = "Oil"
	ItemEndpointIncubator      ItemEndpoint = "Incubator"
	// Equipment & Gems
	ItemEndpointUniqueWeapon    ItemEndpoint = "UniqueWeapon"
	ItemEndpointUniqueArmour    ItemEndpoint = "UniqueArmour"
	ItemEndpointUniqueAccessory ItemEndpoint = "UniqueAccessory"
	ItemEndpointUniqueFlask     ItemEndpoint = "UniqueFlask"
	ItemEndpointUniqueJewel     ItemEndpoint = "UniqueJewel"
	ItemEndpointUniqueRelic     ItemEndpoint = "UniqueRelic"
	ItemEndpointSkillGem        ItemEndpoint = "SkillGem"
	ItemEndpointClusterJewel    ItemEndpoint = "ClusterJewel"
	// Atlas
	ItemEndpointMap              ItemEndpoint = "Map"
	ItemEndpointBlightedMap      ItemEndpoint = "BlightedMap"
	ItemEndpointBlightRavagedMap ItemEndpoint = "BlightRavagedMap"
	ItemEndpointScourgedMap      ItemEndpoint = "ScourgedMap"
	ItemEndpointUniqueMap        ItemEndpoint = "UniqueMap"
	ItemEndpointDeliriumOrb      ItemEndpoint = "DeliriumOrb"
	ItemEndpointInvitation       ItemEndpoint = "Invitation"
	ItemEndpointScarab           ItemEndpoint = "Scarab"
	ItemEndpointMemory           ItemEndpoint = "Memory"
	// Crafting
	ItemEndpointBaseType      ItemEndpoint = "BaseType"
	ItemEndpointFossil        ItemEndpoint = "Fossil"
	ItemEndpointResonator     ItemEndpoint = "Resonator"
	ItemEndpointHelmetEnchant ItemEndpoint = "HelmetEnchant"
	ItemEndpointBeast         ItemEndpoint = "Beast"
	ItemEndpointEssence       ItemEndpoint = "Essence"
	ItemEndpointVial          ItemEndpoint = "Vial"
)

// ItemEndpoints lists every partition of the item snapshot, in merge order.
var ItemEndpoints = []ItemEndpoint{
	ItemEndpointTattoo,
	ItemEndpointOmen,
	ItemEndpointDivinationCard,
	ItemEndpointArtifact,
	ItemEndpointOil,
	ItemEndpointIncubator,
	ItemEndpointUniqueWeapon,
	ItemEndpointUniqueArmour,
	ItemEndpointUniqueAccessory,
	ItemEndpointUniqueFlask,
	ItemEndpointUniqueJewel,
	ItemEndpointUniqueRelic,
	ItemEndpointSkillGem,
	ItemEndpointClusterJewel,
	ItemEndpointMap,
	ItemEndpointBlightedMap,
	ItemEndpointBlightRavagedMap,
	ItemEndpointScourgedMap,
	ItemEndpointUniqueMap,
	ItemEndpointDeliriumOrb,
	ItemEndpointInvitation,
	ItemEndpointScarab,
	ItemEndpointMemory,
	ItemEndpointBaseType,
	ItemEndpointFossil,
	ItemEndpointResonator,
	ItemEndpointHelmetEnchant,
	ItemEndpointBeast,
	ItemEndpointEssence,
	ItemEndpointVial,
}

// Modifier is an item mod line.
type Modifier struct {
	Text     string `json:"text"`
	Optional bool   `json:"optional"`
}

// ItemLine is an entry of an itemoverview page.
type ItemLine struct {
	ID                     int64      `json:"id"`
	Name                   string     `json:"name"`
	Icon                   *string    `json:"icon"`
	LevelRequired          *int       `json:"levelRequired"`
	BaseType               *string    `json:"baseType"`
	Links                  *int       `json:"links"`
	ItemClass              int        `json:"itemClass"`
	GemLevel               *int       `json:"gemLevel"`
	GemQuality             *int       `json:"gemQuality"`
	Sparkline              Sparkline  `json:"sparkline"`
	LowConfidenceSparkline Sparkline  `json:"lowConfidenceSparkline"`
	ImplicitModifiers      []Modifier `json:"implicitModifiers"`
	ExplicitModifiers      []Modifier `json:"explicitModifiers"`
	FlavourText            *string    `json:"flavourText"`
	ItemType               *string    `json:"itemType"`
	ChaosValue             float64    `json:"chaosValue"`
	ExaltedValue           float64    `json:"exaltedValue"`
	DivineValue            float64    `json:"divineValue"`
	Count                  int        `json:"count"`
	DetailsID              string     `json:"detailsId"`
	ListingCount           int        `json:"listingCount"`
	Variant                *string    `json:"variant"`
	Corrupted              bool       `json:"corrupted"`
}

// ItemPage is one itemoverview response.
type ItemPage struct {
	Lines []ItemLine `json:"lines"`
}

// Item is a record of the item snapshot.
type Item struct {
	ID                     int64        `json:"id"`
	Name                   string       `json:"name"`
	Icon                   *string      `json:"icon,omitempty"`
	LevelRequired          *int         `json:"level_required,omitempty"`
	BaseType               *string      `json:"base_type,omitempty"`
	Links                  *int         `json:"links,omitempty"`
	ItemClass              int          `json:"item_class"`
	GemLevel               *int         `json:"gem_level,omitempty"`
	GemQuality             *int         `json:"gem_quality,omitempty"`
	Sparkline              Sparkline    `json:"sparkline"`
	LowConfidenceSparkline Sparkline    `json:"low_confidence_sparkline"`
	ImplicitModifiers      []Modifier   `json:"implicit_modifiers"`
	ExplicitModifiers      []Modifier   `json:"explicit_modifiers"`
	FlavourText            *string      `json:"flavour_text,omitempty"`
	ItemType               *string      `json:"item_type,omitempty"`
	ChaosValue             float64      `json:"chaos_value"`
	ExaltedValue           float64      `json:"exalted_value"`
	DivineValue            float64      `json:"divine_value"`
	Count                  int          `json:"count"`
	DetailsID              string       `json:"details_id"`
	ListingCount           int          `json:"listing_count"`
	Variant                *string      `json:"variant,omitempty"`
	Corrupted              bool         `json:"corrupted"`
	Endpoint               ItemEndpoint `json:"endpoint"`
}

const relicSuffix = "-relic"

func newItem(endpoint ItemEndpoint, l ItemLine) Item {
	name := l.Name
	if strings.HasSuffix(l.DetailsID, relicSuffix) {
		name += " (Relic)"
	}
	return Item{
		ID:                     l.ID,
		Name:                   name,
		Icon:                   l.Icon,
		LevelRequired:          l.LevelRequired,
		BaseType:               l.BaseType,
		Links:                  l.Links,
		ItemClass:              l.ItemClass,
		GemLevel:               l.GemLevel,
		GemQuality:             l.GemQuality,
		Sparkline:              l.Sparkline,
		LowConfidenceSparkline: l.LowConfidenceSparkline,
		ImplicitModifiers:      l.ImplicitModifiers,
		ExplicitModifiers:      l.ExplicitModifiers,
		FlavourText:            l.FlavourText,
		ItemType:               l.ItemType,
		ChaosValue:             l.ChaosValue,
		ExaltedValue:           l.ExaltedValue,
		DivineValue:            l.DivineValue,
		Count:                  l.Count,
		DetailsID:              l.DetailsID,
		ListingCount:           l.ListingCount,
		Variant:                l.Variant,
		Corrupted:              l.Corrupted,
		Endpoint:               endpoint,
	}
}

func modifierTexts(mods []Modifier) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Text
	}
	return out
}

func itemEndpointValues() []string {
	out := make([]string, len(ItemEndpoints))
	for i, e := range ItemEndpoints {
		out[i] = string(e)
	}
	return out
}

// ItemModel is the queryable field table of Item. Records are identified by
// their upstream id.
var ItemModel = schema.MustModel(ItemCollection, func(i Item) string { return strconv.FormatInt(i.ID, 10) },
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "name", Type: schema.FieldTypeString, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Scalar(i.Name) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "level_required", Type: schema.FieldTypeInteger, Shape: schema.ShapeOptional, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.LevelRequired) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "base_type", Type: schema.FieldTypeString, Shape: schema.ShapeOptional, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.BaseType) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "links", Type: schema.FieldTypeInteger, Shape: schema.ShapeOptional, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.Links) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "gem_level", Type: schema.FieldTypeInteger, Shape: schema.ShapeOptional, Filterable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.GemLevel) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "gem_quality", Type: schema.FieldTypeInteger, Shape: schema.ShapeOptional, Filterable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.GemQuality) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "implicit_modifiers", Type: schema.FieldTypeString, Shape: schema.ShapeList, Filterable: true},
		Get:   func(i Item) schema.Value { return schema.List(modifierTexts(i.ImplicitModifiers)) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "explicit_modifiers", Type: schema.FieldTypeString, Shape: schema.ShapeList, Filterable: true},
		Get:   func(i Item) schema.Value { return schema.List(modifierTexts(i.ExplicitModifiers)) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "item_type", Type: schema.FieldTypeString, Shape: schema.ShapeOptional, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.ItemType) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "chaos_value", Type: schema.FieldTypeNumber, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Scalar(i.ChaosValue) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "divine_value", Type: schema.FieldTypeNumber, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Scalar(i.DivineValue) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "variant", Type: schema.FieldTypeString, Shape: schema.ShapeOptional, Filterable: true, Sortable: true},
		Get:   func(i Item) schema.Value { return schema.Optional(i.Variant) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "corrupted", Type: schema.FieldTypeBoolean, Filterable: true},
		Get:   func(i Item) schema.Value { return schema.Scalar(i.Corrupted) },
	},
	schema.Binding[Item]{
		Field: schema.FieldDefinition{Name: "endpoint", Type: schema.FieldTypeEnum, Filterable: true, Sortable: true, Values: itemEndpointValues()},
		Get:   func(i Item) schema.Value { return schema.Scalar(i.Endpoint) },
	},
)

// MergeItems concatenates every partition's lines, tagging each with its
// endpoint. Relic uniques get a " (Relic)" suffix so they can be told apart
// from the regular unique of the same name.
func MergeItems(batches []aggregate.Batch[ItemEndpoint, *ItemPage]) ([]Item, error) {
	return aggregate.Concat(batches,
		func(p *ItemPage) []ItemLine { return p.Lines },
		newItem,
	), nil
}

// ItemPipeline builds the item snapshot of a league from c. Fetches are
// capped at limit concurrent requests when limit is positive.
func ItemPipeline(c *Client, league string, limit int, logger *zap.Logger) aggregate.Pipeline[ItemEndpoint, *ItemPage, Item] {
	return aggregate.Pipeline[ItemEndpoint, *ItemPage, Item]{
		Name: ItemCollection,
		Fetch: func(ctx context.Context, endpoint ItemEndpoint) (*ItemPage, error) {
			return c.ItemOverview(ctx, league, endpoint)
		},
		Merge:  MergeItems,
		Limit:  limit,
		Logger: logger,
	}
}

// ItemSource returns the snapshot source of the item view.
func ItemSource(c *Client, limit int, logger *zap.Logger) func(ctx context.Context, league string) ([]Item, error) {
	return func(ctx context.Context, league string) ([]Item, error) {
		return ItemPipeline(c, league, limit, logger).Build(ctx, ItemEndpoints)
	}
}
