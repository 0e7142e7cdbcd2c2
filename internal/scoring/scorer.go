package scoring

import (
	"math"
	"time"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

// ExternalLinkBase is the DexScreener pair page prefix.
const ExternalLinkBase = "https://dexscreener.com/solana/"

// Weights holds every constant the scorer uses.
// Values are tuning knobs, not derived quantities.
type Weights struct {
	LiveBase     float64 // base points for a LIVE record
	SnapshotBase float64 // base points for a SNAPSHOT record

	MomentumMultiplier float64 // volume/marketCap ratio scale
	MomentumCap        float64

	HolderDivisor float64
	HolderCap     float64
	TxDivisor     float64 // used only when holders are absent
	TxCap         float64

	DevSellMediumPct float64 // DevSellPct above this -> MEDIUM
	Top10HighPct     float64 // Top10HolderPct above this -> HIGH
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		LiveBase:           20,
		SnapshotBase:       10,
		MomentumMultiplier: 20,
		MomentumCap:        40,
		HolderDivisor:      100,
		HolderCap:          20,
		TxDivisor:          500,
		TxCap:              20,
		DevSellMediumPct:   20,
		Top10HighPct:       60,
	}
}

// Scorer turns token records into scored gems.
// It is stateless and safe for concurrent use.
type Scorer struct {
	w Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Score computes the gem score and risk of rec as of now.
// Pure given now; never fails.
func (s *Scorer) Score(rec domain.TokenRecord, now time.Time) domain.ScoredGem {
	gem := domain.ScoredGem{
		Address:    rec.Address,
		Symbol:     rec.Symbol,
		Name:       rec.Name,
		MarketCap:  rec.MarketCap,
		Volume:     rec.Volume,
		Liquidity:  rec.Liquidity,
		Holders:    rec.Holders,
		AgeMinutes: int64(rec.Age(now) / time.Minute),
		Provenance: rec.Provenance,
	}
	if gem.Symbol == "" {
		gem.Symbol = domain.DefaultSymbol
	}

	if rec.Placeholder {
		gem.Risk = domain.RiskUnknown
		return gem
	}

	score := s.base(rec.Provenance) + s.momentum(rec) + s.community(rec)
	gem.Score = math.Round(score*10) / 10
	gem.Risk = s.risk(rec)
	gem.ExternalLink = ExternalLinkBase + rec.Address
	return gem
}

func (s *Scorer) base(p domain.Provenance) float64 {
	if p == domain.ProvenanceLive {
		return s.w.LiveBase
	}
	return s.w.SnapshotBase
}

func (s *Scorer) momentum(rec domain.TokenRecord) float64 {
	if rec.MarketCap <= 0 {
		return 0
	}
	return capped(rec.Volume/rec.MarketCap*s.w.MomentumMultiplier, s.w.MomentumCap)
}

func (s *Scorer) community(rec domain.TokenRecord) float64 {
	switch {
	case rec.Holders > 0 && s.w.HolderDivisor > 0:
		return capped(float64(rec.Holders)/s.w.HolderDivisor, s.w.HolderCap)
	case rec.TxCount > 0 && s.w.TxDivisor > 0:
		return capped(float64(rec.TxCount)/s.w.TxDivisor, s.w.TxCap)
	default:
		return 0
	}
}

func (s *Scorer) risk(rec domain.TokenRecord) domain.Risk {
	risk := domain.RiskLow
	if rec.DevSellPct > s.w.DevSellMediumPct {
		risk = domain.RiskMedium
	}
	if rec.Top10HolderPct > s.w.Top10HighPct {
		risk = domain.RiskHigh
	}
	return risk
}

func capped(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, limit)
}
