package sink

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
)

// Default dispatcher configuration.
const (
	DefaultQueueSize    = 1000
	DefaultWriteTimeout = 5 * time.Second
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Listings     []ListingSink
	Rankings     []RankingSink
	QueueSize    int
	WriteTimeout time.Duration // per sink call
	Logger       *zap.Logger
}

type job struct {
	listing *domain.TokenRecord
	gems    []domain.ScoredGem
	at      time.Time
}

// Dispatcher is a bounded queue drained by one worker that calls every
// configured sink. Enqueueing never blocks: a full queue drops the job.
// It implements ListingSink and RankingSink itself.
type Dispatcher struct {
	listings     []ListingSink
	rankings     []RankingSink
	queue        chan job
	writeTimeout time.Duration
	logger       *zap.Logger

	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher creates a dispatcher. Call Run to start delivering.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Dispatcher{
		listings:     opts.Listings,
		rankings:     opts.Rankings,
		queue:        make(chan job, opts.QueueSize),
		writeTimeout: opts.WriteTimeout,
		logger:       logging.OrNop(opts.Logger),
	}
}

// Empty reports whether no sinks are configured.
func (d *Dispatcher) Empty() bool {
	return len(d.listings) == 0 && len(d.rankings) == 0
}

// RecordListing enqueues rec for every listing sink.
func (d *Dispatcher) RecordListing(_ context.Context, rec domain.TokenRecord) error {
	if len(d.listings) == 0 {
		return nil
	}
	d.enqueue(job{listing: &rec}, "listing")
	return nil
}

// RecordRanking enqueues a ranking for every ranking sink.
// gems must not be mutated by the caller afterwards.
func (d *Dispatcher) RecordRanking(_ context.Context, gems []domain.ScoredGem, computedAt time.Time) error {
	if len(d.rankings) == 0 {
		return nil
	}
	d.enqueue(job{gems: gems, at: computedAt}, "ranking")
	return nil
}

func (d *Dispatcher) enqueue(j job, kind string) {
	select {
	case d.queue <- j:
	default:
		d.dropped.Add(1)
		observability.RecordSinkDropped(kind)
		d.logger.Warn("sink queue full, dropping", zap.String("kind", kind))
	}
}

// Run drains the queue until ctx is cancelled, then delivers what is already
// queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case j := <-d.queue:
			d.deliver(context.Background(), j)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.queue:
			d.deliver(context.Background(), j)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(parent context.Context, j job) {
	if j.listing != nil {
		for _, s := range d.listings {
			d.call(parent, nameOf(s), func(ctx context.Context) error {
				return s.RecordListing(ctx, *j.listing)
			})
		}
		return
	}
	for _, s := range d.rankings {
		d.call(parent, nameOf(s), func(ctx context.Context) error {
			return s.RecordRanking(ctx, j.gems, j.at)
		})
	}
}

func (d *Dispatcher) call(parent context.Context, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, d.writeTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		d.failed.Add(1)
		observability.RecordSinkError(name)
		d.logger.Warn("sink write failed", zap.String("sink", name), zap.Error(err))
		return
	}
	d.delivered.Add(1)
}

// Stats returns delivered, failed and dropped counts.
func (d *Dispatcher) Stats() (delivered, failed, dropped uint64) {
	return d.delivered.Load(), d.failed.Load(), d.dropped.Load()
}

var (
	_ ListingSink = (*Dispatcher)(nil)
	_ RankingSink = (*Dispatcher)(nil)
)
