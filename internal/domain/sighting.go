package domain

// Sighting is one observation of a token as written to the listing journal.
// Corresponds to token_sightings table in PostgreSQL.
type Sighting struct {
	SightingID string     // PRIMARY KEY, deterministic hash
	Address    string     // token mint address
	Symbol     string     // display ticker
	Provenance Provenance // SNAPSHOT | LIVE
	MarketCap  float64    // USD
	Volume     float64    // USD
	Liquidity  float64    // USD
	ObservedAt int64      // Unix timestamp in milliseconds
	CreatedAt  int64      // record creation timestamp (ms)
}

// ScorePoint is one row of a computed ranking.
// Corresponds to gem_scores table in ClickHouse.
type ScorePoint struct {
	ComputedAt int64 // ranking computation time (ms)
	Rank       int   // 1-based position in the ranking
	Address    string
	Symbol     string
	Score      float64
	Risk       Risk
	Provenance Provenance
	MarketCap  float64
	Volume     float64
}
