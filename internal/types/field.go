// internal/types/field.go
package types

// Provenance tells whether a value came from its source or from configuration
type Provenance string

const (
	// ProvenanceLive means the value was fetched from its source
	ProvenanceLive Provenance = "live"
	// ProvenanceFallback means the configured fallback was substituted
	ProvenanceFallback Provenance = "fallback"
)

// Field is a numeric input together with where it came from.
// Err is set only for fallback values and explains why the source was not used.
type Field struct {
	Value  float64    `json:"value"`
	Source Provenance `json:"source"`
	Err    error      `json:"-"`
}

// Live returns a field fetched from its source
func Live(v float64) Field {
	return Field{Value: v, Source: ProvenanceLive}
}

// Fallback returns a field holding the configured default, with the reason
func Fallback(v float64, reason error) Field {
	return Field{Value: v, Source: ProvenanceFallback, Err: reason}
}

// IsLive reports whether the value came from its source
func (f Field) IsLive() bool {
	return f.Source == ProvenanceLive
}

// MarketSnapshot holds the market inputs of one run
type MarketSnapshot struct {
	StockPrice        Field `json:"stock_price"`
	CryptoPrice       Field `json:"crypto_price"`
	SharesOutstanding Field `json:"shares_outstanding"`
}

// Fields returns the snapshot fields keyed by source name
func (s MarketSnapshot) Fields() map[string]Field {
	return map[string]Field{
		SourceStockPrice:  s.StockPrice,
		SourceCryptoPrice: s.CryptoPrice,
		SourceShares:      s.SharesOutstanding,
	}
}

// Source names used in logs, errors and metric labels
const (
	SourceStockPrice  = "stock_price"
	SourceShares      = "shares_outstanding"
	SourceCryptoPrice = "crypto_price"
	SourceHoldings    = "holdings"
)
