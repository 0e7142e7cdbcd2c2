package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infosolanagold/gem-scanner-backend/internal/birdeye"
	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/gems"
	"github.com/infosolanagold/gem-scanner-backend/internal/ingestion"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage/memory"
)

type fakeRanker struct {
	list   domain.GemList
	status gems.Status
}

func (f *fakeRanker) GetGems(context.Context) domain.GemList { return f.list }
func (f *fakeRanker) Status() gems.Status                    { return f.status }

type fakeFeed struct{ stats ingestion.ListenerStats }

func (f fakeFeed) Stats() ingestion.ListenerStats { return f.stats }

type fakeSinks struct{ delivered, failed, dropped uint64 }

func (f fakeSinks) Stats() (uint64, uint64, uint64) { return f.delivered, f.failed, f.dropped }

type fakeHistory struct {
	points []*domain.ScorePoint
	err    error
}

func (f *fakeHistory) InsertBulk(context.Context, []*domain.ScorePoint) error { return nil }
func (f *fakeHistory) GetByAddress(_ context.Context, address string) ([]*domain.ScorePoint, error) {
	return f.points, f.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleGems(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ranker := &fakeRanker{list: domain.GemList{
		Gems: []domain.ScoredGem{
			{Address: "A", Symbol: "AAA", Score: 70, Risk: domain.RiskLow},
			{Address: "B", Symbol: "BBB", Score: 20, Risk: domain.RiskHigh},
		},
		ComputedAt: at,
	}}
	h := NewServer(Options{Ranker: ranker}).Routes()

	rec := get(t, h, "/api/gems")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp GemsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "2025-03-01T10:00:00Z", resp.Updated)
	assert.Equal(t, "A", resp.Gems[0].Address)
}

func TestHandleGems_EmptyIsWellFormed(t *testing.T) {
	h := NewServer(Options{Ranker: &fakeRanker{}}).Routes()

	rec := get(t, h, "/api/gems")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["gems"]))
	assert.JSONEq(t, `0`, string(raw["count"]))
	assert.NotEmpty(t, raw["updated"])
}

func TestHandleStatus(t *testing.T) {
	ranker := &fakeRanker{status: gems.Status{Buffered: 7, CacheValid: true, CacheAge: 12340 * time.Millisecond}}
	feed := fakeFeed{stats: ingestion.ListenerStats{
		State:      ingestion.StateReceiving,
		Received:   42,
		Discarded:  3,
		Reconnects: 2,
		LastDelay:  10 * time.Second,
	}}
	h := NewServer(Options{
		Ranker: ranker,
		Feed:   feed,
		Sinks:  fakeSinks{delivered: 40, failed: 1, dropped: 5},
		KeySet: true,
	}).Routes()

	rec := get(t, h, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"status": "ok",
		"birdeye_key_configured": true,
		"buffered": 7,
		"listener_state": "RECEIVING",
		"cache_age_seconds": 12.3,
		"feed": {"received": 42, "discarded": 3, "reconnects": 2, "last_reconnect_delay_seconds": 10},
		"sinks": {"delivered": 40, "failed": 1, "dropped": 5}
	}`, rec.Body.String())
}

func TestHandleStatus_NoFeedNoCache(t *testing.T) {
	h := NewServer(Options{Ranker: &fakeRanker{}}).Routes()

	rec := get(t, h, "/status")
	assert.JSONEq(t, `{
		"status": "ok",
		"birdeye_key_configured": false,
		"buffered": 0,
		"listener_state": "DISCONNECTED",
		"cache_age_seconds": null,
		"feed": {"received": 0, "discarded": 0, "reconnects": 0, "last_reconnect_delay_seconds": 0}
	}`, rec.Body.String())
}

func TestBannerHealthMetrics(t *testing.T) {
	h := NewServer(Options{Ranker: &fakeRanker{}}).Routes()

	rec := get(t, h, "/")
	assert.Equal(t, Banner, rec.Body.String())

	rec = get(t, h, "/health")
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gem_scanner_")
}

func TestHandleHistory(t *testing.T) {
	history := &fakeHistory{points: []*domain.ScorePoint{
		{ComputedAt: 1735732800000, Rank: 2, Address: "A", Score: 33.3, Risk: domain.RiskMedium},
	}}
	h := NewServer(Options{Ranker: &fakeRanker{}, History: history}).Routes()

	rec := get(t, h, "/api/gems/A/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"address": "A",
		"points": [{"computedAt": "2025-01-01T12:00:00Z", "rank": 2, "score": 33.3, "risk": "MEDIUM"}]
	}`, rec.Body.String())

	history.err = errors.New("connection refused")
	rec = get(t, h, "/api/gems/A/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHistory_Disabled(t *testing.T) {
	h := NewServer(Options{Ranker: &fakeRanker{}}).Routes()

	rec := get(t, h, "/api/gems/A/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewServer(Options{Ranker: &fakeRanker{}, CORSOrigins: []string{"https://app.example"}}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/gems", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/gems", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/gems", nil)
	req.Header.Set("Origin", "https://app.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORS_Wildcard(t *testing.T) {
	h := NewServer(Options{Ranker: &fakeRanker{}, CORSOrigins: []string{"*"}}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anything.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// A snapshot that times out leaves exactly one placeholder, served as one entry.
func TestSnapshotTimeout_ServesPlaceholder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	store := memory.NewTokenStore(0)
	client := birdeye.NewRESTClient(upstream.URL, "key")
	fetcher := ingestion.NewSnapshotFetcher(ingestion.SnapshotOptions{
		Source:  client,
		Query:   birdeye.ListingQuery{Path: birdeye.DefaultListingPath, Limit: 20},
		Timeout: 50 * time.Millisecond,
	})

	assert.Equal(t, 0, fetcher.Seed(context.Background(), store))
	assert.Equal(t, 1, store.Len())

	engine := gems.New(gems.Options{Store: store})
	h := NewServer(Options{Ranker: engine, KeySet: true}).Routes()

	rec := get(t, h, "/api/gems")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GemsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, domain.PlaceholderAddress, resp.Gems[0].Address)
	assert.Equal(t, domain.RiskUnknown, resp.Gems[0].Risk)
}
