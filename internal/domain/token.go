package domain

import "time"

// DefaultSymbol is used when upstream omits the ticker.
const DefaultSymbol = "???"

// PlaceholderAddress keys the record seeded when the snapshot came back empty.
const PlaceholderAddress = "placeholder"

// TokenRecord is one token's observed market state.
// Address is the dedup key; all numeric fields default to zero when absent upstream.
type TokenRecord struct {
	Address   string // base58 mint address
	Symbol    string
	Name      string
	MarketCap float64 // USD
	Volume    float64 // USD, shortest window the source reports
	Liquidity float64 // USD

	// Optional signals, zero means absent.
	Holders        int64
	TxCount        int64
	DevSellPct     float64
	Top10HolderPct float64
	ListedAt       time.Time

	Provenance  Provenance
	ObservedAt  time.Time
	Placeholder bool
}

// NewPlaceholder returns the explicit "not yet loaded" record.
func NewPlaceholder(now time.Time) TokenRecord {
	return TokenRecord{
		Address:     PlaceholderAddress,
		Symbol:      DefaultSymbol,
		Name:        "Waiting for market data",
		Provenance:  ProvenanceSnapshot,
		ObservedAt:  now,
		Placeholder: true,
	}
}

// Age returns how long ago the token was listed, or zero if unknown.
func (r TokenRecord) Age(now time.Time) time.Duration {
	if r.ListedAt.IsZero() || r.ListedAt.After(now) {
		return 0
	}
	return now.Sub(r.ListedAt)
}
