// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Snapshot metrics
	SnapshotFetches *prometheus.CounterVec
	SnapshotRecords prometheus.Counter
	SnapshotLatency prometheus.Histogram

	// Live feed metrics
	ListingsReceived   prometheus.Counter
	FramesDiscarded    *prometheus.CounterVec
	ListenerState      *prometheus.GaugeVec
	ListenerReconnects prometheus.Counter
	ListenerIdlePings  prometheus.Counter

	// Store metrics
	StoreSize      prometheus.Gauge
	StoreEvictions prometheus.Counter

	// Read path metrics
	GemsRequests    *prometheus.CounterVec
	ScoringDuration prometheus.Histogram
	GemsReturned    prometheus.Gauge

	// Side output metrics
	SinkDropped *prometheus.CounterVec
	SinkErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastListingReceived    prometheus.Gauge
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gem_scanner"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Snapshot metrics
		SnapshotFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "fetches_total",
			Help:      "Total number of snapshot fetches by outcome",
		}, []string{"status"}),
		SnapshotRecords: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "records_total",
			Help:      "Total number of records seeded from snapshots",
		}),
		SnapshotLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "fetch_latency_seconds",
			Help:      "Snapshot fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Live feed metrics
		ListingsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "listings_received_total",
			Help:      "Total number of live listings upserted",
		}),
		FramesDiscarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "frames_discarded_total",
			Help:      "Total number of discarded feed frames by reason",
		}, []string{"reason"}),
		ListenerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "state",
			Help:      "1 for the listener's current state, 0 otherwise",
		}, []string{"state"}),
		ListenerReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect attempts",
		}),
		ListenerIdlePings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "idle_pings_total",
			Help:      "Total number of keepalive pings sent after an idle window",
		}),

		// Store metrics
		StoreSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records",
			Help:      "Current number of buffered token records",
		}),
		StoreEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "evictions_total",
			Help:      "Total number of records evicted for capacity",
		}),

		// Read path metrics
		GemsRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gems",
			Name:      "requests_total",
			Help:      "Total number of ranking reads by cache outcome",
		}, []string{"cache"}),
		ScoringDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gems",
			Name:      "compute_duration_seconds",
			Help:      "Time to score, sort and truncate the store",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		GemsReturned: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gems",
			Name:      "ranked",
			Help:      "Number of gems in the last computed ranking",
		}),

		// Side output metrics
		SinkDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "dropped_total",
			Help:      "Total number of side-output jobs dropped on a full queue",
		}, []string{"kind"}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of side-output write failures by sink",
		}, []string{"sink"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastListingReceived: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_listing_received_timestamp",
			Help:      "Unix timestamp of the last live listing",
		}),
		LastSuccessfulSnapshot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of the last successful snapshot fetch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordSnapshot records one snapshot fetch outcome.
func RecordSnapshot(status string, records int, elapsed time.Duration) {
	DefaultMetrics.SnapshotFetches.WithLabelValues(status).Inc()
	DefaultMetrics.SnapshotLatency.Observe(elapsed.Seconds())
	DefaultMetrics.SnapshotRecords.Add(float64(records))
	if status == "ok" {
		DefaultMetrics.LastSuccessfulSnapshot.SetToCurrentTime()
	}
}

// RecordListing records one live listing upserted into the store.
func RecordListing() {
	DefaultMetrics.ListingsReceived.Inc()
	DefaultMetrics.LastListingReceived.SetToCurrentTime()
}

// RecordFrameDiscarded records a feed frame that could not be used.
func RecordFrameDiscarded(reason string) {
	DefaultMetrics.FramesDiscarded.WithLabelValues(reason).Inc()
}

// SetListenerState marks state as the current listener state.
func SetListenerState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		DefaultMetrics.ListenerState.WithLabelValues(s).Set(v)
	}
}

// RecordReconnect records a reconnect attempt.
func RecordReconnect() {
	DefaultMetrics.ListenerReconnects.Inc()
}

// RecordIdlePing records a keepalive ping sent after an idle window.
func RecordIdlePing() {
	DefaultMetrics.ListenerIdlePings.Inc()
}

// UpdateStore updates the store gauges. evictions is the store's running total.
func UpdateStore(size int, evictions uint64) {
	DefaultMetrics.StoreSize.Set(float64(size))
	// Counters cannot be set; add the delta since the last observation.
	lastEvictions.update(evictions, DefaultMetrics.StoreEvictions)
}

// RecordGemsRequest records one ranking read.
func RecordGemsRequest(cacheHit bool) {
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	DefaultMetrics.GemsRequests.WithLabelValues(label).Inc()
}

// RecordRanking records one ranking computation.
func RecordRanking(gems int, elapsed time.Duration) {
	DefaultMetrics.GemsReturned.Set(float64(gems))
	DefaultMetrics.ScoringDuration.Observe(elapsed.Seconds())
}

// RecordSinkDropped records a side-output job dropped on a full queue.
func RecordSinkDropped(kind string) {
	DefaultMetrics.SinkDropped.WithLabelValues(kind).Inc()
}

// RecordSinkError records a failed side-output write.
func RecordSinkError(sink string) {
	DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
