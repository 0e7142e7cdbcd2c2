package api

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/ingestion"
)

// GemsResponse is the body of GET /api/gems.
type GemsResponse struct {
	Gems    []domain.ScoredGem `json:"gems"`
	Count   int                `json:"count"`
	Updated string             `json:"updated"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status               string   `json:"status"`
	BirdeyeKeyConfigured bool     `json:"birdeye_key_configured"`
	Buffered             int      `json:"buffered"`
	ListenerState        string   `json:"listener_state"`
	CacheAgeSeconds      *float64 `json:"cache_age_seconds"` // null before the first ranking

	Feed  FeedCounters  `json:"feed"`
	Sinks *SinkCounters `json:"sinks,omitempty"`
}

// FeedCounters are the live listener counters since startup.
type FeedCounters struct {
	Received         uint64  `json:"received"`
	Discarded        uint64  `json:"discarded"`
	Reconnects       uint64  `json:"reconnects"`
	LastDelaySeconds float64 `json:"last_reconnect_delay_seconds"`
}

// SinkCounters are side-output delivery counts since startup.
type SinkCounters struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// HistoryResponse is the body of GET /api/gems/{address}/history.
type HistoryResponse struct {
	Address string       `json:"address"`
	Points  []HistoryRow `json:"points"`
}

// HistoryRow is one stored ranking position.
type HistoryRow struct {
	ComputedAt string  `json:"computedAt"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Risk       string  `json:"risk"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("json encoding error", zap.Error(err))
	}
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(Banner))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleGems always answers 200 with a well-formed list.
func (s *Server) handleGems(w http.ResponseWriter, r *http.Request) {
	list := s.ranker.GetGems(r.Context())
	out := list.Gems
	if out == nil {
		out = []domain.ScoredGem{}
	}
	updated := list.ComputedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	s.writeJSON(w, http.StatusOK, GemsResponse{
		Gems:    out,
		Count:   len(out),
		Updated: updated.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.ranker.Status()
	feed := ingestion.ListenerStats{State: ingestion.StateDisconnected}
	if s.feed != nil {
		feed = s.feed.Stats()
	}

	resp := StatusResponse{
		Status:               "ok",
		BirdeyeKeyConfigured: s.keySet,
		Buffered:             st.Buffered,
		ListenerState:        feed.State.String(),
		Feed: FeedCounters{
			Received:         feed.Received,
			Discarded:        feed.Discarded,
			Reconnects:       feed.Reconnects,
			LastDelaySeconds: feed.LastDelay.Seconds(),
		},
	}
	if st.CacheValid {
		age := math.Round(st.CacheAge.Seconds()*10) / 10
		resp.CacheAgeSeconds = &age
	}
	if s.sinks != nil {
		delivered, failed, dropped := s.sinks.Stats()
		resp.Sinks = &SinkCounters{Delivered: delivered, Failed: failed, Dropped: dropped}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "score history is not enabled"})
		return
	}

	address := chi.URLParam(r, "address")
	points, err := s.history.GetByAddress(r.Context(), address)
	if err != nil {
		s.logger.Warn("history query failed", zap.String("address", address), zap.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "score history unavailable"})
		return
	}

	rows := make([]HistoryRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, HistoryRow{
			ComputedAt: time.UnixMilli(p.ComputedAt).UTC().Format(time.RFC3339),
			Rank:       p.Rank,
			Score:      p.Score,
			Risk:       string(p.Risk),
		})
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Address: address, Points: rows})
}
