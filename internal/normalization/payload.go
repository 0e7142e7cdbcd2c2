package normalization

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

// Upstream field names tried per logical field, in priority order.
// The first key present with a usable value wins.
var (
	AddressFields   = []string{"address", "mint", "tokenAddress", "baseAddress"}
	SymbolFields    = []string{"symbol", "ticker", "baseSymbol"}
	NameFields      = []string{"name", "baseName"}
	MarketCapFields = []string{"mc", "marketcap", "marketCap", "market_cap", "fdv"}
	VolumeFields    = []string{"volume_5m", "v5mUSD", "volume24hUSD", "v24hUSD", "volume"}
	LiquidityFields = []string{"liquidity", "liquidityUSD", "liquidity_usd"}
	HoldersFields   = []string{"holderCount", "holder", "holders"}
	TxCountFields   = []string{"trade24h", "txns", "trade_5m", "txCount"}
	DevSellFields   = []string{"dev_sell_percent", "devSellPercent"}
	Top10Fields     = []string{"top10_holders_percent", "top10HolderPercent"}
	ListedAtFields  = []string{"created_timestamp", "liquidityAddedAt", "listingTime"}
)

// Response shapes probed for the item list, in priority order.
var listPaths = [][]string{
	{"data", "tokens"},
	{"data", "items"},
	{"data"},
	{"tokens"},
	{"items"},
}

// millisThreshold separates Unix seconds from Unix milliseconds.
const millisThreshold = 1e12

// Listing times outside [minListedAt, now+maxClockSkew] are treated as unknown.
var minListedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const maxClockSkew = 24 * time.Hour

// maxCount is 2^63, the first float64 that does not fit in an int64.
const maxCount = float64(math.MaxInt64)

// pubkeyLen is the decoded size of a Solana address.
const pubkeyLen = 32

// ErrNoList is returned when no item list can be located in a payload.
var ErrNoList = errors.New("normalization: no item list in payload")

// Normalize maps one raw upstream item to a TokenRecord.
// Returns false when the item has no valid Solana address.
func Normalize(item map[string]any, provenance domain.Provenance, now time.Time) (domain.TokenRecord, bool) {
	addr := firstString(item, AddressFields)
	if !IsValidAddress(addr) {
		return domain.TokenRecord{}, false
	}

	symbol := firstString(item, SymbolFields)
	if symbol == "" {
		symbol = domain.DefaultSymbol
	}

	rec := domain.TokenRecord{
		Address:        addr,
		Symbol:         symbol,
		Name:           firstString(item, NameFields),
		MarketCap:      firstNumber(item, MarketCapFields),
		Volume:         firstNumber(item, VolumeFields),
		Liquidity:      firstNumber(item, LiquidityFields),
		Holders:        firstCount(item, HoldersFields),
		TxCount:        firstCount(item, TxCountFields),
		DevSellPct:     firstNumber(item, DevSellFields),
		Top10HolderPct: firstNumber(item, Top10Fields),
		ListedAt:       toTime(firstNumber(item, ListedAtFields), now),
		Provenance:     provenance,
		ObservedAt:     now,
	}
	return rec, true
}

// ExtractItems locates the item list in a listing response body.
func ExtractItems(body []byte) ([]map[string]any, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, err
	}

	if arr, ok := root.([]any); ok {
		return objects(arr), nil
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, ErrNoList
	}
	for _, path := range listPaths {
		if arr, ok := lookup(obj, path).([]any); ok {
			return objects(arr), nil
		}
	}
	return nil, ErrNoList
}

// NormalizeList parses a listing response and normalizes every item.
// Items without a valid address are skipped and counted in dropped.
func NormalizeList(body []byte, provenance domain.Provenance, now time.Time) (records []domain.TokenRecord, dropped int, err error) {
	items, err := ExtractItems(body)
	if err != nil {
		return nil, 0, err
	}

	records = make([]domain.TokenRecord, 0, len(items))
	for _, item := range items {
		rec, ok := Normalize(item, provenance, now)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

// IsValidAddress reports whether s decodes as a 32-byte base58 public key.
func IsValidAddress(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == pubkeyLen
}

func lookup(obj map[string]any, path []string) any {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstString(item map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := item[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstNumber accepts JSON numbers and numeric strings.
// Negative, NaN and infinite values are treated as absent.
func firstNumber(item map[string]any, keys []string) float64 {
	for _, k := range keys {
		v, ok := toFloat(item[k])
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		return v
	}
	return 0
}

// firstCount is firstNumber for integer signals. Values that do not fit in
// an int64 are treated as absent.
func firstCount(item map[string]any, keys []string) int64 {
	for _, k := range keys {
		v, ok := toFloat(item[k])
		if !ok || math.IsNaN(v) || v < 0 || v >= maxCount {
			continue
		}
		return int64(v)
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toTime interprets ts as Unix seconds, or milliseconds above millisThreshold.
// Implausible times yield the zero time.
func toTime(ts float64, now time.Time) time.Time {
	if ts <= 0 || ts >= maxCount {
		return time.Time{}
	}
	var t time.Time
	if ts >= millisThreshold {
		t = time.UnixMilli(int64(ts)).UTC()
	} else {
		t = time.Unix(int64(ts), 0).UTC()
	}
	if t.Before(minListedAt) || t.After(now.Add(maxClockSkew)) {
		return time.Time{}
	}
	return t
}
