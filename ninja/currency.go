package ninja

import (
	"context"
	"fmt"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/aggregate"
	"github.com/asaidimu/go-ninja/core/schema"
	"go.uber.org/zap"
)

// CurrencyCollection names the currency snapshot.
const CurrencyCollection = "currency"

// PivotCurrency is the currency every divine_value is expressed in.
const PivotCurrency = "Divine Orb"

// CurrencyEndpoint is a currencyoverview partition.
type CurrencyEndpoint string

const (
	CurrencyEndpointCurrency CurrencyEndpoint = "Currency"
	CurrencyEndpointFragment CurrencyEndpoint = "Fragment"
)

// CurrencyEndpoints lists every partition of the currency snapshot, in merge order.
var CurrencyEndpoints = []CurrencyEndpoint{
	CurrencyEndpointCurrency,
	CurrencyEndpointFragment,
}

// Sparkline is a price history series as reported upstream.
type Sparkline struct {
	Data        []*float64 `json:"data"`
	TotalChange float64    `json:"totalChange"`
}

// CurrencyTrade is one side of a currency exchange sample.
type CurrencyTrade struct {
	ID                int     `json:"id"`
	LeagueID          int     `json:"league_id"`
	PayCurrencyID     int     `json:"pay_currency_id"`
	GetCurrencyID     int     `json:"get_currency_id"`
	SampleTimeUTC     string  `json:"sample_time_utc"`
	Count             int     `json:"count"`
	Value             float64 `json:"value"`
	DataPointCount    int     `json:"data_point_count"`
	IncludesSecondary bool    `json:"includes_secondary"`
	ListingCount      int     `json:"listing_count"`
}

// CurrencyLine is a priced entry of a currencyoverview page.
type CurrencyLine struct {
	CurrencyTypeName              string         `json:"currencyTypeName"`
	Pay                           *CurrencyTrade `json:"pay,omitempty"`
	Receive                       *CurrencyTrade `json:"receive,omitempty"`
	PaySparkLine                  Sparkline      `json:"paySparkLine"`
	ReceiveSparkLine              Sparkline      `json:"receiveSparkLine"`
	ChaosEquivalent               float64        `json:"chaosEquivalent"`
	LowConfidencePaySparkLine     Sparkline      `json:"lowConfidencePaySparkLine"`
	LowConfidenceReceiveSparkLine Sparkline      `json:"lowConfidenceReceiveSparkLine"`
	DetailsID                     string         `json:"detailsId"`
}

// CurrencyDetail is the descriptive entry of a currencyoverview page.
type CurrencyDetail struct {
	ID      int     `json:"id"`
	Icon    *string `json:"icon"`
	Name    string  `json:"name"`
	TradeID *string `json:"tradeId"`
}

// CurrencyPage is one currencyoverview response.
type CurrencyPage struct {
	Lines           []CurrencyLine   `json:"lines"`
	CurrencyDetails []CurrencyDetail `json:"currencyDetails"`
}

// Currency is a record of the currency snapshot: a detail joined with its
// priced line.
type Currency struct {
	ID                            string           `json:"id"`
	Name                          string           `json:"name"`
	Icon                          *string          `json:"icon,omitempty"`
	TradeID                       *string          `json:"trade_id,omitempty"`
	DetailsID                     string           `json:"details_id"`
	ChaosValue                    float64          `json:"chaos_value"`
	DivineValue                   float64          `json:"divine_value"`
	Pay                           *CurrencyTrade   `json:"pay,omitempty"`
	Receive                       *CurrencyTrade   `json:"receive,omitempty"`
	PaySparkLine                  Sparkline        `json:"pay_spark_line"`
	ReceiveSparkLine              Sparkline        `json:"receive_spark_line"`
	LowConfidencePaySparkLine     Sparkline        `json:"low_confidence_pay_spark_line"`
	LowConfidenceReceiveSparkLine Sparkline        `json:"low_confidence_receive_spark_line"`
	Endpoint                      CurrencyEndpoint `json:"endpoint"`
}

func currencyEndpointValues() []string {
	out := make([]string, len(CurrencyEndpoints))
	for i, e := range CurrencyEndpoints {
		out[i] = string(e)
	}
	return out
}

// CurrencyModel is the queryable field table of Currency. Records are
// identified by name.
var CurrencyModel = schema.MustModel(CurrencyCollection, func(c Currency) string { return c.Name },
	schema.Binding[Currency]{
		Field: schema.FieldDefinition{Name: "name", Type: schema.FieldTypeString, Filterable: true, Sortable: true},
		Get:   func(c Currency) schema.Value { return schema.Scalar(c.Name) },
	},
	schema.Binding[Currency]{
		Field: schema.FieldDefinition{Name: "chaos_value", Type: schema.FieldTypeNumber, Filterable: true, Sortable: true},
		Get:   func(c Currency) schema.Value { return schema.Scalar(c.ChaosValue) },
	},
	schema.Binding[Currency]{
		Field: schema.FieldDefinition{Name: "divine_value", Type: schema.FieldTypeNumber, Filterable: true, Sortable: true},
		Get:   func(c Currency) schema.Value { return schema.Scalar(c.DivineValue) },
	},
	schema.Binding[Currency]{
		Field: schema.FieldDefinition{Name: "endpoint", Type: schema.FieldTypeEnum, Filterable: true, Sortable: true, Values: currencyEndpointValues()},
		Get:   func(c Currency) schema.Value { return schema.Scalar(c.Endpoint) },
	},
)

type taggedLine struct {
	CurrencyLine
	endpoint CurrencyEndpoint
}

// MergeCurrency joins every detail to the line with the same currency type
// name and derives divine_value from the pivot line. Details without a line
// are dropped. A build without a usable pivot fails with core.ErrNumericDomain.
func MergeCurrency(batches []aggregate.Batch[CurrencyEndpoint, *CurrencyPage]) ([]Currency, error) {
	lines := aggregate.Concat(batches,
		func(p *CurrencyPage) []CurrencyLine { return p.Lines },
		func(endpoint CurrencyEndpoint, line CurrencyLine) taggedLine {
			return taggedLine{CurrencyLine: line, endpoint: endpoint}
		},
	)
	details := aggregate.Concat(batches,
		func(p *CurrencyPage) []CurrencyDetail { return p.CurrencyDetails },
		func(_ CurrencyEndpoint, d CurrencyDetail) CurrencyDetail { return d },
	)

	byType := aggregate.Index(lines, func(l taggedLine) string { return l.CurrencyTypeName })
	pivot, ok := byType[PivotCurrency]
	if !ok {
		return nil, fmt.Errorf("%w: pivot currency %q is missing", core.ErrNumericDomain, PivotCurrency)
	}

	return aggregate.Join(details, func(d CurrencyDetail) string { return d.Name }, byType,
		func(d CurrencyDetail, l taggedLine) (Currency, error) {
			divine, err := aggregate.Relative(l.ChaosEquivalent, pivot.ChaosEquivalent)
			if err != nil {
				return Currency{}, fmt.Errorf("currency %q: %w", d.Name, err)
			}
			id := l.DetailsID
			if d.TradeID != nil {
				id = *d.TradeID
			}
			return Currency{
				ID:                            id,
				Name:                          d.Name,
				Icon:                          d.Icon,
				TradeID:                       d.TradeID,
				DetailsID:                     l.DetailsID,
				ChaosValue:                    l.ChaosEquivalent,
				DivineValue:                   divine,
				Pay:                           l.Pay,
				Receive:                       l.Receive,
				PaySparkLine:                  l.PaySparkLine,
				ReceiveSparkLine:              l.ReceiveSparkLine,
				LowConfidencePaySparkLine:     l.LowConfidencePaySparkLine,
				LowConfidenceReceiveSparkLine: l.LowConfidenceReceiveSparkLine,
				Endpoint:                      l.endpoint,
			}, nil
		})
}

// CurrencyPipeline builds the currency snapshot of a league from c.
func CurrencyPipeline(c *Client, league string, logger *zap.Logger) aggregate.Pipeline[CurrencyEndpoint, *CurrencyPage, Currency] {
	return aggregate.Pipeline[CurrencyEndpoint, *CurrencyPage, Currency]{
		Name: CurrencyCollection,
		Fetch: func(ctx context.Context, endpoint CurrencyEndpoint) (*CurrencyPage, error) {
			return c.CurrencyOverview(ctx, league, endpoint)
		},
		Merge:  MergeCurrency,
		Logger: logger,
	}
}

// CurrencySource returns the snapshot source of the currency view.
func CurrencySource(c *Client, logger *zap.Logger) func(ctx context.Context, league string) ([]Currency, error) {
	return func(ctx context.Context, league string) ([]Currency, error) {
		return CurrencyPipeline(c, league, logger).Build(ctx, CurrencyEndpoints)
	}
}
