// Package api exposes the gem ranking over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/gems"
	"github.com/infosolanagold/gem-scanner-backend/internal/ingestion"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// Banner is served at the root path.
const Banner = "GOLD GUARD SYSTEM ONLINE 🟢"

// Ranker serves the current ranking.
type Ranker interface {
	GetGems(ctx context.Context) domain.GemList
	Status() gems.Status
}

// FeedStats reports the live listener state and counters.
type FeedStats interface {
	Stats() ingestion.ListenerStats
}

// SinkStats reports side-output delivery counts.
type SinkStats interface {
	Stats() (delivered, failed, dropped uint64)
}

// Options configures a Server.
type Options struct {
	Ranker      Ranker
	Feed        FeedStats // nil reports DISCONNECTED
	Sinks       SinkStats // nil omits sink counters from /status
	History     storage.ScorePointStore // optional, enables /api/gems/{address}/history
	KeySet      bool
	CORSOrigins []string
	Logger      *zap.Logger
}

// Server holds handler dependencies.
type Server struct {
	ranker  Ranker
	feed    FeedStats
	sinks   SinkStats
	history storage.ScorePointStore
	keySet  bool
	origins []string
	logger  *zap.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	return &Server{
		ranker:  opts.Ranker,
		feed:    opts.Feed,
		sinks:   opts.Sinks,
		history: opts.History,
		keySet:  opts.KeySet,
		origins: opts.CORSOrigins,
		logger:  logging.OrNop(opts.Logger),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors(s.origins))

	r.Get("/", s.handleBanner)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", observability.Handler())

	r.Route("/api/gems", func(r chi.Router) {
		r.Get("/", s.handleGems)
		r.Get("/{address}/history", s.handleHistory)
	})

	return r
}

// HTTPServer wraps Routes in an http.Server with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
