package domain

import "time"

// Risk is the threshold classification attached to a scored token.
type Risk string

const (
	RiskLow     Risk = "LOW"
	RiskMedium  Risk = "MEDIUM"
	RiskHigh    Risk = "HIGH"
	RiskUnknown Risk = "UNKNOWN" // placeholder only
)

// ScoredGem is the ranked output for one token. It is derived on read and never stored.
type ScoredGem struct {
	Address      string     `json:"address"`
	Symbol       string     `json:"symbol"`
	Name         string     `json:"name,omitempty"`
	MarketCap    float64    `json:"marketCap"`
	Volume       float64    `json:"volume"`
	Liquidity    float64    `json:"liquidity"`
	Holders      int64      `json:"holders"`
	AgeMinutes   int64      `json:"ageMinutes"`
	Score        float64    `json:"score"`
	Risk         Risk       `json:"risk"`
	Provenance   Provenance `json:"provenance"`
	ExternalLink string     `json:"externalLink,omitempty"`
}

// GemList is one computed ranking together with the time it was computed.
type GemList struct {
	Gems       []ScoredGem
	ComputedAt time.Time
}
