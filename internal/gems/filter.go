package gems

import (
	"time"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

// Filter is an optional eligibility band applied before scoring.
// A zero bound is disabled; the zero Filter admits everything.
type Filter struct {
	MinMarketCap float64
	MaxMarketCap float64
	MinVolume    float64
	MaxAge       time.Duration
}

// Enabled reports whether any bound is set.
func (f Filter) Enabled() bool {
	return f.MinMarketCap > 0 || f.MaxMarketCap > 0 || f.MinVolume > 0 || f.MaxAge > 0
}

// Allows reports whether rec is eligible at now.
// The placeholder always passes. An unknown listing time passes the age bound.
func (f Filter) Allows(rec domain.TokenRecord, now time.Time) bool {
	if rec.Placeholder {
		return true
	}
	if f.MinMarketCap > 0 && rec.MarketCap <= f.MinMarketCap {
		return false
	}
	if f.MaxMarketCap > 0 && rec.MarketCap >= f.MaxMarketCap {
		return false
	}
	if f.MinVolume > 0 && rec.Volume <= f.MinVolume {
		return false
	}
	if f.MaxAge > 0 && !rec.ListedAt.IsZero() && rec.Age(now) >= f.MaxAge {
		return false
	}
	return true
}
